package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/presenter/http/render"
)

type ctxKey int

const (
	networkCtxKey ctxKey = iota
	addressesCtxKey
)

func GetNetworkMiddleware(networks map[string]network.Network) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "network")

			n, ok := networks[name]
			if !ok {
				render.JSON(w, r, http.StatusNotFound, fmt.Sprintf("network %s not found", name))
				return
			}

			ctx := context.WithValue(r.Context(), networkCtxKey, n)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Network(ctx context.Context) network.Network {
	n, _ := ctx.Value(networkCtxKey).(network.Network)
	return n
}

// GetAddressesMiddleware parses the named URL params as hex addresses.
func GetAddressesMiddleware(params ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addrs := make(map[string]common.Address, len(params))
			for _, param := range params {
				value := chi.URLParam(r, param)
				if !common.IsHexAddress(value) {
					render.Error(w, r, fmt.Errorf("%s is not a valid address: %w", param, render.ErrBadRequest))
					return
				}
				addrs[param] = common.HexToAddress(value)
			}

			ctx := context.WithValue(r.Context(), addressesCtxKey, addrs)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Address(ctx context.Context, param string) common.Address {
	addrs, _ := ctx.Value(addressesCtxKey).(map[string]common.Address)
	return addrs[param]
}
