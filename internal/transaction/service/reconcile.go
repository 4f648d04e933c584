package service

import (
	"fmt"
	"strings"

	"github.com/heraerp/heracore/internal/config"
	"github.com/heraerp/heracore/internal/smartcode"
	"github.com/heraerp/heracore/internal/transaction/domain"
)

// reconcile enforces the posting rule of the resolved policy before anything
// is written.
func reconcile(policy smartcode.Policy, totalAmount int64, lines []domain.TransactionLine) error {
	switch policy.Rule {
	case config.RuleBalanced:
		var debit, credit int64
		for _, line := range lines {
			switch strings.ToUpper(line.LineType) {
			case domain.LineTypeDebit:
				debit += line.LineAmount
			case domain.LineTypeCredit:
				credit += line.LineAmount
			default:
				return domain.ErrInvalidLineType
			}
		}
		if debit != credit {
			return &domain.ReconciliationError{
				Rule:   config.RuleBalanced,
				Detail: fmt.Sprintf("debit %d != credit %d", debit, credit),
			}
		}
		return nil
	default:
		var sum int64
		for _, line := range lines {
			sum += line.LineAmount
		}
		if sum != totalAmount {
			return &domain.ReconciliationError{
				Rule:   config.RuleSum,
				Detail: fmt.Sprintf("line sum %d != header total %d", sum, totalAmount),
			}
		}
		return nil
	}
}

// checkGuardrail enforces contextual-tag consistency for guarded families:
// every line's tag must equal the header's.
func checkGuardrail(policy smartcode.Policy, headerMeta map[string]any, lines []domain.TransactionLine) error {
	tag := strings.TrimSpace(policy.GuardTag)
	if tag == "" {
		return nil
	}

	expected := tagValue(headerMeta, tag)
	for i, line := range lines {
		got := tagValue(line.Metadata, tag)
		if got != expected {
			return &domain.GuardrailError{
				LineIndex: i,
				Tag:       tag,
				Expected:  expected,
				Got:       got,
			}
		}
	}
	return nil
}

func tagValue(meta map[string]any, tag string) string {
	if meta == nil {
		return ""
	}
	value, ok := meta[tag]
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
