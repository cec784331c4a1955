package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSecrets map[string]string

func (s staticSecrets) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestGetSecretMap(t *testing.T) {
	sg := staticSecrets{
		"overrun/JWT": `{"ACCESS_TOKEN_SECRET":"a","REFRESH_TOKEN_SECRET":"b"}`,
		"overrun/RAW": `plain-text`,
	}

	m, err := GetSecretMap(context.Background(), sg, "overrun/JWT")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ACCESS_TOKEN_SECRET": "a", "REFRESH_TOKEN_SECRET": "b"}, m)

	_, err = GetSecretMap(context.Background(), sg, "overrun/RAW")
	assert.ErrorContains(t, err, "not a JSON object")

	_, err = GetSecretMap(context.Background(), sg, "overrun/MISSING")
	assert.Error(t, err)
}
