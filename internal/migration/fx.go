package migration

import (
	"github.com/mocky70025/suiren/internal/config"
	paymentdomain "github.com/mocky70025/suiren/internal/payment/domain"
	pendingpaymentdomain "github.com/mocky70025/suiren/internal/pendingpayment/domain"
	receiptdomain "github.com/mocky70025/suiren/internal/receipt/domain"
	"github.com/mocky70025/suiren/internal/seed"
	userdomain "github.com/mocky70025/suiren/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql deployments are single-node dev or small
			// shop installs, AutoMigrate is sufficient there.
			err := conn.AutoMigrate(
				&userdomain.User{},
				&paymentdomain.Payment{},
				&receiptdomain.Receipt{},
				&receiptdomain.AnalysisApplication{},
				&pendingpaymentdomain.PendingPayment{},
			)
			if err != nil {
				return err
			}
		}

		if cfg.SeedAdmin {
			return seed.EnsureAdmin(conn, cfg)
		}
		return nil
	}),
)
