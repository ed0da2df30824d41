package cmd

import (
	"fmt"
	"strings"

	"github.com/jmehdipour/qmail/internal/db"
	"github.com/jmehdipour/qmail/internal/repository"
	"github.com/jmehdipour/qmail/internal/serial"
	"github.com/spf13/cobra"
)

var seedFloor uint64

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Set the initial serial floor for the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		floor := cfg.Serial.Floor
		if cmd.Flags().Changed("floor") {
			floor = seedFloor
		}

		switch strings.ToLower(cfg.Serial.Backend) {
		case "", "redis":
			rdb, err := db.NewRedisClient(cfg.Redis)
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer rdb.Close()

			set, err := serial.NewRedisAllocator(rdb, cfg.Serial.RedisKey).Seed(cmd.Context(), floor)
			if err != nil {
				return fmt.Errorf("seed redis counter: %w", err)
			}
			if !set {
				cmd.Println(">> Serial counter already in use, left unchanged")
				return nil
			}

		case "mysql":
			sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
			if err != nil {
				return fmt.Errorf("mysql connect: %w", err)
			}
			defer sqlDB.Close()

			// first allocation is floor+1, matching the redis counter
			if err := repository.NewSerialsRepository(sqlDB).SetFloor(cmd.Context(), floor+1); err != nil {
				return fmt.Errorf("seed serials table: %w", err)
			}

		case "static":
			cmd.Println(">> Static serial backend, nothing to seed")
			return nil

		default:
			return fmt.Errorf("unknown serial backend %q", cfg.Serial.Backend)
		}

		cmd.Printf(">> Serial floor set to %d (%s)\n", floor, serial.Encode(floor))
		return nil
	},
}

func init() {
	seedCmd.Flags().Uint64Var(&seedFloor, "floor", 0, "override serial.floor")
}
