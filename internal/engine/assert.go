package engine

import (
	"fmt"
	"strings"
)

// Expectations are the monitor's configured acceptance criteria.
// Status codes are always checked; the remaining criteria apply only
// when configured.
type Expectations struct {
	StatusCodes       []int
	MaxResponseTimeMS *int
	BodyContains      string
	BodyNotContains   string
}

// AssertionResult reports one boolean per criterion. Unconfigured
// criteria are vacuously true. Reason concatenates the failing
// criteria's descriptions, in evaluation order.
type AssertionResult struct {
	StatusOK          bool
	ResponseTimeOK    bool
	BodyContainsOK    bool
	BodyNotContainsOK bool
	Passed            bool
	Reason            string
}

// Evaluate applies the monitor's expectations to a probe response.
func Evaluate(statusCode int, responseTimeMS int64, body string, exp Expectations) AssertionResult {
	result := AssertionResult{
		StatusOK:          false,
		ResponseTimeOK:    true,
		BodyContainsOK:    true,
		BodyNotContainsOK: true,
	}

	var failures []string

	for _, code := range exp.StatusCodes {
		if statusCode == code {
			result.StatusOK = true
			break
		}
	}
	if !result.StatusOK {
		failures = append(failures, fmt.Sprintf("Expected status %s, got %d", formatCodes(exp.StatusCodes), statusCode))
	}

	if exp.MaxResponseTimeMS != nil && responseTimeMS > int64(*exp.MaxResponseTimeMS) {
		result.ResponseTimeOK = false
		failures = append(failures, fmt.Sprintf("Response time %dms exceeded %dms", responseTimeMS, *exp.MaxResponseTimeMS))
	}

	if exp.BodyContains != "" && !strings.Contains(body, exp.BodyContains) {
		result.BodyContainsOK = false
		failures = append(failures, fmt.Sprintf("Response body does not contain %q", exp.BodyContains))
	}

	if exp.BodyNotContains != "" && strings.Contains(body, exp.BodyNotContains) {
		result.BodyNotContainsOK = false
		failures = append(failures, fmt.Sprintf("Response body contains %q", exp.BodyNotContains))
	}

	result.Passed = len(failures) == 0
	result.Reason = strings.Join(failures, "; ")
	return result
}

// HealthyIgnoringLatency reports whether every criterion except
// response time passed. The state machine treats a slow-but-otherwise
// healthy response as degraded, not down.
func (r AssertionResult) HealthyIgnoringLatency() bool {
	return r.StatusOK && r.BodyContainsOK && r.BodyNotContainsOK
}

func formatCodes(codes []int) string {
	if len(codes) == 1 {
		return fmt.Sprintf("%d", codes[0])
	}

	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return "one of [" + strings.Join(parts, ", ") + "]"
}
