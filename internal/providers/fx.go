package providers

import (
	"github.com/mocky70025/suiren/internal/providers/line"
	"github.com/mocky70025/suiren/internal/providers/paypay"
	"github.com/mocky70025/suiren/internal/providers/vision"
	"go.uber.org/fx"
)

// Module bundles all external collaborator clients.
var Module = fx.Module("providers",
	line.Module,
	paypay.Module,
	vision.Module,
)
