package storage

import (
	"github.com/bobmcallan/entrycheck/internal/common"
)

func testLogger() *common.Logger {
	return common.NewLogger("error")
}

func defaultStorageConfig(backend, path string) common.StorageConfig {
	return common.StorageConfig{Backend: backend, Path: path}
}
