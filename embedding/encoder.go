package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quadra-commerce/hybridrec/core"
)

// ServiceEncoder 是远程文本向量化服务的客户端（REST）。
//
// 服务契约：
//   - POST {endpoint}/encode，请求 {"model": "...", "texts": [...]}
//   - 响应 {"embeddings": [[...], ...]}，与输入一一对应
//   - 相同模型 + 相同输入必须返回相同向量（缓存正确性依赖于此）
//
// 纯空白文本在发送前归一化为空串，保证空描述商品稳定编码而不报错。
type ServiceEncoder struct {
	// Endpoint 服务端点，例如 "http://embedding:8080"
	Endpoint string

	// Model 嵌入模型标识，例如 "all-MiniLM-L6-v2"
	Model string

	// Dim 向量维度
	Dim int

	// Timeout 请求超时时间
	Timeout time.Duration

	// Credentials 凭证轮换策略（可选）。显式注入而非进程级计数器，
	// 多个编码器实例各自独立轮换，互不干扰。
	Credentials CredentialSource

	// BatchSize 单次请求的最大文本数（<=0 表示不分批）
	BatchSize int

	httpClient *http.Client
}

// ServiceEncoderOption 配置选项
type ServiceEncoderOption func(*ServiceEncoder)

// WithTimeout 设置请求超时时间
func WithTimeout(d time.Duration) ServiceEncoderOption {
	return func(e *ServiceEncoder) { e.Timeout = d }
}

// WithCredentials 设置凭证轮换策略
func WithCredentials(src CredentialSource) ServiceEncoderOption {
	return func(e *ServiceEncoder) { e.Credentials = src }
}

// WithBatchSize 设置单次请求的最大文本数
func WithBatchSize(n int) ServiceEncoderOption {
	return func(e *ServiceEncoder) { e.BatchSize = n }
}

// NewServiceEncoder 创建一个远程编码器客户端。
func NewServiceEncoder(endpoint, model string, dim int, opts ...ServiceEncoderOption) *ServiceEncoder {
	e := &ServiceEncoder{
		Endpoint:  endpoint,
		Model:     model,
		Dim:       dim,
		Timeout:   30 * time.Second,
		BatchSize: 64,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.httpClient = &http.Client{Timeout: e.Timeout}
	return e
}

func (e *ServiceEncoder) Name() string   { return e.Model }
func (e *ServiceEncoder) Dimension() int { return e.Dim }

type encodeRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type encodeResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// EncodeTexts 批量编码文本，按 BatchSize 分批请求。
func (e *ServiceEncoder) EncodeTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = strings.TrimSpace(t)
	}

	batch := e.BatchSize
	if batch <= 0 {
		batch = len(normalized)
	}

	out := make([][]float64, 0, len(normalized))
	for start := 0; start < len(normalized); start += batch {
		end := start + batch
		if end > len(normalized) {
			end = len(normalized)
		}
		vecs, err := e.encodeBatch(ctx, normalized[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *ServiceEncoder) encodeBatch(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(encodeRequest{Model: e.Model, Texts: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint+"/encode", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.Credentials != nil {
		if key := e.Credentials.Next(); key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleEmbedding, core.ErrorCodeUnavailable, "embedding: service unreachable: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embedding: service returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding: count mismatch: sent %d texts, got %d vectors", len(texts), len(parsed.Embeddings))
	}
	for _, v := range parsed.Embeddings {
		if len(v) != e.Dim {
			return nil, fmt.Errorf("embedding: dimension mismatch: expected %d, got %d", e.Dim, len(v))
		}
	}
	return parsed.Embeddings, nil
}

var _ core.TextEncoder = (*ServiceEncoder)(nil)
