package handler

import (
	"github.com/maloba12/umutulo/internal/identity"
	"github.com/maloba12/umutulo/internal/storage"
	"github.com/maloba12/umutulo/pkg/config"
	"github.com/maloba12/umutulo/pkg/database"
)

var (
	provider  *identity.Provider
	blobs     storage.Store
	memberCfg config.MemberConfig
)

// Init wires the handler package to its collaborators. Must be called
// after the database is initialized.
func Init(cfg *config.Config) {
	provider = identity.NewProvider(database.GetDB())
	blobs = storage.NewGormStore(database.GetDB())
	memberCfg = cfg.Member
}
