package handlers_integrated_test_suite

import (
	"fmt"
	"os"
	"testing"

	"github.com/PeterGeers/myadmin/internal/db"
)

func TestMain(m *testing.M) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		fmt.Println("DATABASE_URL not set, skipping integration tests")
		os.Exit(0)
	}
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "mysql"
	}

	var err error
	database, err = db.Connect(driver, url)
	if err != nil {
		fmt.Println("could not connect to database:", err)
		os.Exit(1)
	}
	setup()
	code := m.Run()
	cleanup()
	database.Close()
	os.Exit(code)
}
