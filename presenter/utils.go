package presenter

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/presenter/http/render"
	"github.com/exposure-labs/subnet-relay/utils"
)

const displayDecimals = 18

// formatUnits renders an 18-decimal integer string as a decimal number.
func formatUnits(value string) string {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return value
	}
	return d.Shift(-displayDecimals).String()
}

func bridgeRequestToInfo(req *entity.BridgeRequest) *BridgeRequestInfo {
	return &BridgeRequestInfo{
		Direction:   req.Direction,
		Source:      req.SourceNetwork,
		Destination: req.DestinationNetwork,
		RequestID:   req.RequestID,
		User:        req.User,
		Asset:       req.Asset,
		Symbol:      req.AssetSymbol,
		Amount:      formatUnits(req.Amount),
		BlockNumber: req.BlockNumber,
	}
}

func pairToInfo(pair *entity.Pair) *PairInfo {
	return &PairInfo{
		Network:     pair.NetworkName,
		Dex:         pair.DexName,
		Pair:        pair.PairName,
		PairAddress: pair.PairAddress,
		Token:       pair.TokenAddress,
		Quote:       pair.QuoteAddress,
	}
}

func balanceResult(network string, token, holder common.Address, balance *big.Int) *BalanceResult {
	return &BalanceResult{
		Network: network,
		Token:   token,
		Holder:  holder,
		Balance: decimal.NewFromBigInt(balance, -displayDecimals).String(),
		Raw:     balance.String(),
	}
}

// parseV accepts the recovery id either as a decimal or a 0x-prefixed
// hex number.
func parseV(v string) (byte, error) {
	base := 10
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		v, base = v[2:], 16
	}
	res, err := strconv.ParseUint(v, base, 8)
	if err != nil {
		return 0, err
	}
	return byte(res), nil
}

// recoverAccount returns the signer of req.Message rebuilt from the split
// r, s and v signature parts.
func recoverAccount(req *VerifyRequest) (common.Address, error) {
	if req.Account == "" || req.Message == "" || req.R == "" || req.S == "" || req.V == "" {
		return common.Address{}, fmt.Errorf("missing verification fields: %w", render.ErrBadRequest)
	}
	if !common.IsHexAddress(req.Account) {
		return common.Address{}, fmt.Errorf("account is not a valid address: %w", render.ErrBadRequest)
	}
	r, err := hexutil.Decode(req.R)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature r: %w", render.ErrBadRequest)
	}
	s, err := hexutil.Decode(req.S)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature s: %w", render.ErrBadRequest)
	}
	v, err := parseV(req.V)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature v: %w", render.ErrBadRequest)
	}
	signer, err := utils.RestoreSignerFromParts([]byte(req.Message), r, s, v)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", err.Error(), render.ErrBadRequest)
	}
	return signer, nil
}
