package user

import (
	"github.com/mocky70025/suiren/internal/user/repository"
	"github.com/mocky70025/suiren/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
