package infrastructure

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/Victor-armando18/order-pricing/internal/domain"
)

// ApplyOrderPatch aplica um patch RFC 6902 ao documento bruto do pedido,
// antes de voltar a precificá-lo.
func ApplyOrderPatch(original []byte, patchData []byte) ([]byte, error) {
	patch, err := jsonpatch.DecodePatch(patchData)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode patch: %v", domain.ErrInvalidPatch, err)
	}

	modified, err := patch.Apply(original)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to apply patch: %v", domain.ErrInvalidPatch, err)
	}
	return modified, nil
}
