package points

import (
	"github.com/mocky70025/suiren/internal/points/service"
	"go.uber.org/fx"
)

var Module = fx.Module("points.service",
	fx.Provide(service.New),
)
