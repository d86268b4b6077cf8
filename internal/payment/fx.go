package payment

import (
	"github.com/mocky70025/suiren/internal/payment/repository"
	"github.com/mocky70025/suiren/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
