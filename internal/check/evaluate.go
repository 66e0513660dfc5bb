package check

// Evaluate 按阈值评估一个 tier。阈值边界包含在内：等于 critical 即 CRITICAL，
// 等于 warning 即 WARNING。采集失败一律 UNKNOWN，无法测量不等于故障。
// 未启用的 tier 不应传进来，调用方先过滤。
func Evaluate(cfg TierConfig, m Metric) Verdict {
	if m.Err != nil {
		return VerdictIndeterminate
	}
	switch {
	case m.Value >= cfg.Critical:
		return VerdictCritical
	case m.Value >= cfg.Warning:
		return VerdictWarning
	default:
		return VerdictOK
	}
}
