package receipt

import (
	"github.com/mocky70025/suiren/internal/receipt/repository"
	"github.com/mocky70025/suiren/internal/receipt/service"
	"go.uber.org/fx"
)

var Module = fx.Module("receipt.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
