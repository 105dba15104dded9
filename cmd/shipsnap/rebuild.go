package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shipsnap/pkg/index"
	"shipsnap/pkg/logger"
	"shipsnap/pkg/storage"
)

// rebuildCmd represents the rebuild-index command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Rebuild the dedup index from the storage layout",
	Long: `Scan the per-vessel photo folders in object storage and regenerate the
dedup index document from what is actually stored. Use this when the index
is lost or out of sync with storage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		log := logger.GetLogger()

		store, err := storage.NewMinIOStore(&cfg.Storage, log)
		if err != nil {
			return fmt.Errorf("storage initialization failed: %w", err)
		}

		idx := index.NewManager(store, cfg.Storage.IndexKey, log)
		ids, err := idx.Rebuild(context.Background(), cfg.Storage.UploadPrefix)
		if err != nil {
			return err
		}

		fmt.Printf("index rebuilt with %d vessels\n", len(ids))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
