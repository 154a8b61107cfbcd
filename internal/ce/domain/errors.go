package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind 重分类失败的类别，调用方据此分支，不解析消息文本
type ErrorKind string

const (
	KindEmptyLedger           ErrorKind = "empty_ledger"
	KindColumnResolution      ErrorKind = "column_resolution"
	KindDateParsingExhaustion ErrorKind = "date_parsing_exhaustion"
	KindMappingCoverage       ErrorKind = "mapping_coverage"
	KindInternal              ErrorKind = "internal"
)

// 每个类别的哨兵错误，配合 errors.Is 使用
var (
	ErrEmptyLedger           = errors.New("ledger is empty")
	ErrColumnResolution      = errors.New("required ledger columns not found")
	ErrDateParsingExhaustion = errors.New("no ledger row has a valid date")
	ErrMappingCoverage       = errors.New("no ledger account is mapped")
	ErrInternal              = errors.New("internal reclassification error")
)

var sentinels = map[ErrorKind]error{
	KindEmptyLedger:           ErrEmptyLedger,
	KindColumnResolution:      ErrColumnResolution,
	KindDateParsingExhaustion: ErrDateParsingExhaustion,
	KindMappingCoverage:       ErrMappingCoverage,
	KindInternal:              ErrInternal,
}

// ReclassError 带诊断信息的引擎错误
// 诊断字段是对外契约，UI 用它们提示用户如何修正输入
type ReclassError struct {
	Kind    ErrorKind
	Message string

	// ColumnResolution
	Missing []string
	Present []string

	// DateParsingExhaustion
	SampleDates []string

	// MappingCoverage
	SampleLedgerCodes  []string
	SampleMappingCodes []string
}

func (e *ReclassError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	switch e.Kind {
	case KindColumnResolution:
		fmt.Fprintf(&b, " (missing: %s; present: %s)", strings.Join(e.Missing, ", "), strings.Join(e.Present, ", "))
	case KindDateParsingExhaustion:
		fmt.Fprintf(&b, " (samples: %s)", strings.Join(e.SampleDates, ", "))
	case KindMappingCoverage:
		fmt.Fprintf(&b, " (ledger codes: %s; mapping codes: %s)",
			strings.Join(e.SampleLedgerCodes, ", "), strings.Join(e.SampleMappingCodes, ", "))
	}
	return b.String()
}

// Is 让 errors.Is(err, ErrMappingCoverage) 等判断生效
func (e *ReclassError) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// Diagnostics 供 API 层序列化的诊断载荷
func (e *ReclassError) Diagnostics() map[string][]string {
	d := make(map[string][]string)
	put := func(k string, v []string) {
		if len(v) > 0 {
			d[k] = v
		}
	}
	put("missing", e.Missing)
	put("present", e.Present)
	put("sample_dates", e.SampleDates)
	put("sample_ledger_codes", e.SampleLedgerCodes)
	put("sample_mapping_codes", e.SampleMappingCodes)
	return d
}

// KindOf 取错误类别，非引擎错误返回空
func KindOf(err error) ErrorKind {
	var re *ReclassError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// ErrClientNotFound 仓储中不存在该客户
var ErrClientNotFound = errors.New("client workspace not found")

// ErrSchemaNotFound 请求的 schema 名称不存在
var ErrSchemaNotFound = errors.New("schema not found")

// ErrVersionConflict 乐观锁冲突：工作区已被其他请求修改
var ErrVersionConflict = errors.New("optimistic lock conflict: workspace modified by others")
