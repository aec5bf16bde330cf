package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Driver picks the gorm dialector for a DSN: sqlite for file:/:memory:/*.db
// style DSNs, mysql for everything else.
func Driver(dsn string) string {
	d := strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(d, "file:"),
		strings.HasPrefix(d, ":memory:"),
		strings.HasSuffix(d, ".db"),
		strings.HasSuffix(d, ".sqlite"):
		return "sqlite"
	default:
		return "mysql"
	}
}

func Connect(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch Driver(dsn) {
	case "sqlite":
		dialector = gormsqlite.Open(dsn)
	default:
		dialector = mysql.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", Driver(dsn), err)
	}
	return gdb, nil
}
