package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmail-project/dmail-backend/internal/config"
)

func TestPutExpireForSuffix(t *testing.T) {
	require.NoError(t, config.Set(config.Default()))
	imageExpire := config.Get().S3.PresignPutImageExpire
	fileExpire := config.Get().S3.PresignPutFileExpire

	assert.Equal(t, imageExpire, putExpireFor(".png"))
	assert.Equal(t, imageExpire, putExpireFor("JPEG"))
	assert.Equal(t, imageExpire, putExpireFor(".webp"))
	assert.Equal(t, fileExpire, putExpireFor(".pdf"))
	assert.Equal(t, fileExpire, putExpireFor(""))
}
