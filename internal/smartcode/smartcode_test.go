package smartcode

import (
	"testing"

	"github.com/heraerp/heracore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "canonical", in: "HERA.SALON.CRM.ENTITY.CUSTOMER.V1", want: "HERA.SALON.CRM.ENTITY.CUSTOMER.V1"},
		{name: "lowercase version tag", in: "HERA.SALON.CRM.ENTITY.CUSTOMER.v1", want: "HERA.SALON.CRM.ENTITY.CUSTOMER.V1"},
		{name: "surrounding whitespace", in: "  HERA.FIN.GL.TXN.JOURNAL.V2 ", want: "HERA.FIN.GL.TXN.JOURNAL.V2"},
		{name: "multi digit version", in: "HERA.FIN.GL.TXN.JOURNAL.V12", want: "HERA.FIN.GL.TXN.JOURNAL.V12"},
		{name: "missing prefix", in: "XERA.FIN.GL.TXN.JOURNAL.V1", wantErr: true},
		{name: "four segments", in: "HERA.FIN.GL.V1", wantErr: true},
		{name: "non numeric version", in: "HERA.FIN.GL.TXN.JOURNAL.VX", wantErr: true},
		{name: "no version tag", in: "HERA.FIN.GL.TXN.JOURNAL", wantErr: true},
		{name: "lowercase segment", in: "HERA.fin.GL.TXN.JOURNAL.V1", wantErr: true},
		{name: "underscore segment", in: "HERA.FIN.GL.TXN.MEMBER_OF.V1", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSmartCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFamilyStripsVersion(t *testing.T) {
	assert.Equal(t, "HERA.FIN.GL.TXN.JOURNAL", Family("HERA.FIN.GL.TXN.JOURNAL.V1"))
	assert.Equal(t, "HERA.FIN.GL.TXN.JOURNAL", Family("HERA.FIN.GL.TXN.JOURNAL.v7"))
	assert.Equal(t, "", Family("not-a-code"))
}

func TestVersion(t *testing.T) {
	assert.Equal(t, 12, Version("HERA.FIN.GL.TXN.JOURNAL.V12"))
	assert.Equal(t, 0, Version("garbage"))
}

func TestRegistryResolveLongestPrefix(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Policy{Family: "HERA.FIN.GL", Rule: config.RuleSum})

	// HERA.FIN.GL shadows the default HERA.FIN balanced rule.
	assert.Equal(t, config.RuleSum, r.Resolve("HERA.FIN.GL.TXN.JOURNAL.V1").Rule)
	assert.Equal(t, config.RuleBalanced, r.Resolve("HERA.FIN.AR.TXN.INVOICE.V1").Rule)

	// POS families carry the branch guardrail by default.
	pos := r.Resolve("HERA.POS.SALE.TXN.ORDER.V1")
	assert.Equal(t, config.RuleSum, pos.Rule)
	assert.Equal(t, "branch_id", pos.GuardTag)

	// Anything else falls back to sum with no guardrail.
	other := r.Resolve("HERA.MFG.WO.TXN.BUILD.V1")
	assert.Equal(t, config.RuleSum, other.Rule)
	assert.Empty(t, other.GuardTag)
}

func TestRegistryVersionBumpKeepsFamily(t *testing.T) {
	r := NewRegistry(nil)
	v1 := r.Resolve("HERA.POS.SALE.TXN.ORDER.V1")
	v2 := r.Resolve("HERA.POS.SALE.TXN.ORDER.V2")
	assert.Equal(t, v1, v2)
}
