package index

import (
	"fmt"

	"github.com/google/uuid"
)

// UserNamespace is the per-user namespace for document retrieval vectors.
// This prevents cross-tenant leakage and keeps index filters cheap.
func UserNamespace(userID uuid.UUID) string {
	return fmt.Sprintf("user-%s", userID.String())
}
