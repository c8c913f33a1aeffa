package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/recon/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		sender   string
		receiver string
		subtype  string
		want     model.Kind
	}{
		{"bank transfer", InternalBankCode, "37040044", SubtypeStandard, model.KindBankTransfer},
		{"account transfer", InternalBankCode, InternalBankCode, SubtypeStandard, model.KindAccountTransfer},
		{"account transfer wins over collection", InternalBankCode, InternalBankCode, SubtypeCollection, model.KindAccountTransfer},
		{"direct debit", "37040044", CollectorBankCode, SubtypeCollection, model.KindDirectDebit},
		{"collector with standard subtype", "37040044", CollectorBankCode, SubtypeStandard, model.KindUnclassified},
		{"internal sender with collection subtype", InternalBankCode, "37040044", SubtypeCollection, model.KindUnclassified},
		{"external to external", "37040044", "10020030", SubtypeStandard, model.KindUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.sender, tt.receiver, tt.subtype)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Classify(tt.sender, tt.receiver, tt.subtype))
		})
	}
}

func TestValidateRow(t *testing.T) {
	for _, subtype := range []string{SubtypeStandard, SubtypeCollection} {
		row := model.NewRow(2, map[string]string{model.FieldSubtype: subtype})
		assert.NoError(t, ValidateRow(row))
	}

	err := ValidateRow(model.NewRow(2, map[string]string{model.FieldSubtype: "99"}))
	require.Error(t, err)
	assert.Equal(t, "UMSATZ_KEY 99 is not allowed", err.Error())
	assert.Equal(t, FailureStructural, KindOf(err))
}
