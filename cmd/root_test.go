package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassandra-cluster-backup/internal/storage"
)

func TestStorageProviderFlagListsBackends(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("storage-provider")
	require.NotNil(t, flag)

	assert.Equal(t, string(storage.ProviderS3), flag.DefValue)
	for _, provider := range storage.SupportedProviders() {
		assert.Contains(t, flag.Usage, string(provider))
	}
}
