package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误分级：
//   - NOT_FOUND / 冷启动：不是失败，调用方降级处理（空结果或只用另一路信号）
//   - EMPTY_INPUT：训练输入为空，本次构建中止，已发布结果保持不变
//   - UNAVAILABLE：KV 存储等依赖不可达，可重试，禁止静默丢弃写入
//   - INDEX_STATE：索引状态非法（未训练即查询、索引与元数据文件不成对），属配置错误，不重试
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INDEX_STATE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "index", "model"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在 / 冷启动
	ErrorCodeEmptyInput    = "EMPTY_INPUT"    // 训练输入为空
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 依赖不可用（可重试）
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeIndexState    = "INDEX_STATE"    // 索引状态非法（不重试）
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore     = "store"
	ModuleIndex     = "index"
	ModuleModel     = "model"
	ModuleEmbedding = "embedding"
	ModuleJob       = "job"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsEmptyInput 检查错误是否为 EMPTY_INPUT
func IsEmptyInput(err error) bool { return hasCode(err, ErrorCodeEmptyInput) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsIndexState 检查错误是否为 INDEX_STATE
func IsIndexState(err error) bool { return hasCode(err, ErrorCodeIndexState) }
