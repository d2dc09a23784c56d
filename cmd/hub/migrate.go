package main

import (
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"github.com/ucu-innovators/hub/internal/bootstrap"
	"github.com/ucu-innovators/hub/internal/infra/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		inj := bootstrap.BuildContainer()
		log := do.MustInvoke[*zap.Logger](inj)
		if err := db.Migrate(do.MustInvoke[*gorm.DB](inj)); err != nil {
			return err
		}
		log.Info("schema up to date")
		return nil
	},
}
