package providers

import "github.com/mocky70025/suiren/internal/providers/providererr"

// ErrExternalService marks any collaborator failure (payment provider,
// messaging, screenshot analysis). Callers surface it without touching
// ledger state.
var ErrExternalService = providererr.ErrExternalService
