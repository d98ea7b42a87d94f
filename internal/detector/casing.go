package detector

import (
	"encoding/json"
	"strings"
)

// 远程评分服务的响应字段命名不稳定，同一字段可能是 PascalCase 或
// camelCase。统一在这里做字段解析，两种写法都接受。

// fieldValue 按 PascalCase 字段名取值，取不到再试 camelCase
func fieldValue(obj map[string]json.RawMessage, pascal string) (json.RawMessage, bool) {
	if v, ok := obj[pascal]; ok {
		return v, true
	}
	camel := strings.ToLower(pascal[:1]) + pascal[1:]
	if v, ok := obj[camel]; ok {
		return v, true
	}
	return nil, false
}

func stringField(obj map[string]json.RawMessage, pascal string) string {
	raw, ok := fieldValue(obj, pascal)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func floatField(obj map[string]json.RawMessage, pascal string) (float64, bool) {
	raw, ok := fieldValue(obj, pascal)
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}
