package pendingpayment

import (
	"github.com/mocky70025/suiren/internal/pendingpayment/repository"
	"github.com/mocky70025/suiren/internal/pendingpayment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pendingpayment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
