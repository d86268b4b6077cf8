package providererr

import "errors"

// ErrExternalService marks any collaborator failure (payment provider,
// messaging, screenshot analysis). Callers surface it without touching
// ledger state.
var ErrExternalService = errors.New("external_service_error")
