package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestRateColumnsKeepSubCentPrecision(t *testing.T) {
	testCases := []struct {
		name  string
		value any
	}{
		{"pricing", &Pricing{}},
		{"session", &Session{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := schema.Parse(tc.value, &sync.Map{}, schema.NamingStrategy{})
			require.NoError(t, err)
			field := s.LookUpField("RatePerMinute")
			require.NotNil(t, field)
			assert.Equal(t, schema.DataType("decimal(12,6)"), field.DataType)
		})
	}
}
