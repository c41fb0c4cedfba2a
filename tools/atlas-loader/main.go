// 供atlas讀取gorm model產生schema遷移用的loader
// 用法: atlas migrate diff --env gorm (external_schema指向go run ./tools/atlas-loader)
package main

import (
	"fmt"
	"io"
	"os"

	"ariga.io/atlas-provider-gorm/gormschema"

	"sokoni/models"
)

func main() {
	// 依外鍵相依順序列出，先建被參照的資料表
	stmts, err := gormschema.New("postgres").Load(
		&models.User{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Product{},
		&models.Image{},
		&models.Bid{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.FeeRecord{},
		&models.Notification{},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load gorm schema:", err)
		os.Exit(1)
	}
	io.WriteString(os.Stdout, stmts)
}
