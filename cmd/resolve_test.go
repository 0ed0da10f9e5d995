package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "accounts.resolved.csv", defaultOutputPath("accounts.csv"))
	assert.Equal(t, "accounts.resolved.csv", defaultOutputPath("accounts.xlsx"))
	assert.Equal(t, "data/accounts.resolved.csv", defaultOutputPath("data/accounts.xlsx"))
	assert.Equal(t, "accounts.resolved.csv", defaultOutputPath("accounts"))
}
