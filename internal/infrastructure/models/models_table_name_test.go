package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "payments", Payment{}.TableName())
	assert.Equal(t, "investors", Investor{}.TableName())
}
