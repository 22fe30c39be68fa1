package disperse

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/multisend/internal/directory"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// RecipientResolver turns a literal address or a directory handle into an address.
type RecipientResolver struct {
	Directory directory.Resolver
	Namespace common.Address
}

func (r *RecipientResolver) Resolve(ctx context.Context, token string) (common.Address, error) {
	token = strings.TrimSpace(token)
	if addressPattern.MatchString(token) {
		return common.HexToAddress(token), nil
	}
	if token == "" {
		return common.Address{}, ErrInvalidRecipient
	}
	if r == nil || r.Directory == nil {
		return common.Address{}, fmt.Errorf("%w: not an address and no directory configured", ErrInvalidRecipient)
	}
	addr, err := r.Directory.ResolveHandle(ctx, r.Namespace, token)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidRecipient, err)
	}
	return addr, nil
}
