package check

import (
	"strings"

	"laowang/db-health-check/pkg/core"
)

// TierVerdict 一个 tier 的评估结果和说明，按 tier 声明顺序传给 Reduce
type TierVerdict struct {
	Tier    string
	Verdict Verdict
	Message string
	Err     error
}

// Reduce 合并各 tier 的结论。
//
//   - exemption 非空：角色豁免，整体 OK，摘要以豁免说明开头
//   - 全部 tier 以同一类错误失败：整体 UNKNOWN，错误只报一次
//   - 其余情况取最严重的结论，CRITICAL > WARNING > UNKNOWN > OK
//
// 摘要按传入顺序拼接每个 tier 的说明，并带上各自的结论。
func Reduce(verdicts []TierVerdict, exemption string) (core.HealthLevel, string) {
	if len(verdicts) == 0 {
		return core.HealthUnknown, "no tier was evaluated"
	}

	if exemption != "" {
		return core.HealthOK, exemption + "; " + joinTagged(verdicts)
	}

	if err, ok := sharedFailure(verdicts); ok {
		return core.HealthUnknown, err.Error()
	}

	overall := core.HealthOK
	for _, v := range verdicts {
		if v.Verdict.Severity() > overall.Severity() {
			overall = v.Verdict
		}
	}
	return overall, joinTagged(verdicts)
}

// sharedFailure 所有 tier 都失败且错误分类相同时返回第一个错误
func sharedFailure(verdicts []TierVerdict) (error, bool) {
	first := verdicts[0].Err
	if first == nil {
		return nil, false
	}
	kind := core.KindOf(first)
	for _, v := range verdicts[1:] {
		if v.Err == nil || core.KindOf(v.Err) != kind {
			return nil, false
		}
	}
	return first, true
}

func joinTagged(verdicts []TierVerdict) string {
	parts := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		parts = append(parts, v.Verdict.String()+": "+v.Message)
	}
	return strings.Join(parts, ", ")
}
