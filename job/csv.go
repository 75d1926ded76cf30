package job

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quadra-commerce/hybridrec/core"
)

// 上游导出的表格是系统边界：行为表（user_id, product_id, item_type_id,
// rating, behavior_time）和商品表（product_id, product_name, description,
// category_name）。列按表头定位，列顺序无关。

// LoadBehaviorCSV 读取行为导出文件。
// rating 列是序数事件权重（1=VIEW .. 4=PURCHASE），非法值的行报错。
// behavior_time 列可选，缺失时事件时间为零值（动态窗口功能需要该列）。
// 文件没有任何数据行时返回 EMPTY_INPUT。
func LoadBehaviorCSV(path string) (core.BehaviorLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open behavior csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeEmptyInput, "behavior csv: empty file")
	}
	col := headerIndex(header)

	userCol, ok := col["user_id"]
	if !ok {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeInvalidInput, "behavior csv: missing user_id column")
	}
	productCol, ok := col["product_id"]
	if !ok {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeInvalidInput, "behavior csv: missing product_id column")
	}
	ratingCol, ok := col["rating"]
	if !ok {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeInvalidInput, "behavior csv: missing rating column")
	}
	categoryCol, hasCategory := col["item_type_id"]
	timeCol, hasTime := col["behavior_time"]

	var log core.BehaviorLog
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("behavior csv line %d: %w", line+1, err)
		}
		line++

		// 行可以比表头短（FieldsPerRecord=-1），必填列缺失按坏行报错
		if userCol >= len(row) || productCol >= len(row) || ratingCol >= len(row) {
			return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeInvalidInput,
				fmt.Sprintf("behavior csv line %d: row has %d fields, required columns missing", line, len(row)))
		}

		w, err := strconv.Atoi(strings.TrimSpace(row[ratingCol]))
		if err != nil {
			return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeInvalidInput,
				fmt.Sprintf("behavior csv line %d: bad rating %q", line, row[ratingCol]))
		}
		kind, ok := core.EventKindFromWeight(w)
		if !ok {
			return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeInvalidInput,
				fmt.Sprintf("behavior csv line %d: rating %d outside [1,4]", line, w))
		}

		ev := core.BehaviorEvent{
			UserID:    strings.TrimSpace(row[userCol]),
			ProductID: strings.TrimSpace(row[productCol]),
			Kind:      kind,
		}
		if hasCategory && categoryCol < len(row) {
			ev.Category = strings.TrimSpace(row[categoryCol])
		}
		if hasTime && timeCol < len(row) {
			if t, err := parseTime(strings.TrimSpace(row[timeCol])); err == nil {
				ev.Time = t
			}
		}
		log = append(log, ev)
	}

	if len(log) == 0 {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeEmptyInput, "behavior csv: no data rows")
	}
	return log, nil
}

// LoadProductsCSV 读取商品导出文件。描述缺失按空串处理。
func LoadProductsCSV(path string) ([]core.ProductRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open products csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeEmptyInput, "products csv: empty file")
	}
	col := headerIndex(header)

	idCol, ok := col["product_id"]
	if !ok {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeInvalidInput, "products csv: missing product_id column")
	}
	nameCol, hasName := col["product_name"]
	descCol, hasDesc := col["description"]
	catCol, hasCat := col["category_name"]

	var out []core.ProductRecord
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("products csv: %w", err)
		}
		line++

		if idCol >= len(row) {
			return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeInvalidInput,
				fmt.Sprintf("products csv line %d: row has %d fields, product_id column missing", line, len(row)))
		}

		p := core.ProductRecord{ID: strings.TrimSpace(row[idCol])}
		if hasName && nameCol < len(row) {
			p.Name = row[nameCol]
		}
		if hasDesc && descCol < len(row) {
			p.Description = row[descCol]
		}
		if hasCat && catCol < len(row) {
			p.Category = strings.TrimSpace(row[catCol])
		}
		out = append(out, p)
	}

	if len(out) == 0 {
		return nil, core.NewDomainError(core.ModuleJob, core.ErrorCodeEmptyInput, "products csv: no data rows")
	}
	return out, nil
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return col
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
