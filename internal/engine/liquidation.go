package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/holiman/uint256"

	"github.com/meridianfi/lendcore/internal/domain"
)

// LiquidationInfo is the read-only liquidation preview. SeizeAmount here uses
// the flat LiquidationBonusBps constant; the mutation path in Liquidate sizes
// seizure with the collateral asset's liquidation threshold instead. The two
// disagree on purpose until the economic parameter is settled (see DESIGN.md).
type LiquidationInfo struct {
	HealthFactor uint64 `json:"health_factor"`
	Liquidatable bool   `json:"liquidatable"`
	SeizeAmount  uint64 `json:"seize_amount"`
}

// healthFactorLocked scores the user's debtSymbol exposure against their
// collateralSymbol holdings, in basis points. 10000 means safe: either no
// debt, or debt value within the collateral's LTV allowance. Below 10000 the
// position is eligible for liquidation.
func (e *Engine) healthFactorLocked(pos *domain.Position, debtCfg, collCfg *domain.AssetConfig, nowSec int64) (uint64, error) {
	debtAmt := pos.Debt[debtCfg.Symbol]
	if debtAmt == 0 {
		return domain.HealthyFactor, nil
	}
	if err := assertFresh(debtCfg, nowSec); err != nil {
		return 0, err
	}
	if err := assertFresh(collCfg, nowSec); err != nil {
		return 0, err
	}

	debtValue := value(debtAmt, debtCfg.LastPrice)
	if debtValue.IsZero() {
		return domain.HealthyFactor, nil
	}
	collValue := value(pos.Collateral[collCfg.Symbol], collCfg.LastPrice)

	maxDebt := new(uint256.Int).Mul(collValue, uint256.NewInt(collCfg.LTVRatio))
	maxDebt.Div(maxDebt, uint256.NewInt(domain.BasisPoints))
	if debtValue.Cmp(maxDebt) <= 0 {
		return domain.HealthyFactor, nil
	}

	// hf = (collateral_value * liquidation_threshold / 10000) * 10000 / debt_value
	hf := new(uint256.Int).Mul(collValue, uint256.NewInt(collCfg.LiquidationThreshold))
	hf.Div(hf, uint256.NewInt(domain.BasisPoints))
	hf.Mul(hf, uint256.NewInt(domain.BasisPoints))
	hf.Div(hf, debtValue)
	if !hf.IsUint64() {
		return math.MaxUint64, nil
	}
	return hf.Uint64(), nil
}

// HealthFactor reports the basis-point health score of user's debtSymbol
// position priced against collateralSymbol holdings.
func (e *Engine) HealthFactor(user, debtSymbol, collateralSymbol string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitLocked(); err != nil {
		return 0, err
	}
	pos, debtCfg, collCfg, err := e.liquidationSubjectsLocked(user, debtSymbol, collateralSymbol)
	if err != nil {
		return 0, err
	}
	return e.healthFactorLocked(pos, debtCfg, collCfg, e.now().Unix())
}

// IsLiquidatable reports whether the user's position can be liquidated. A
// position with zero debt in debtSymbol is never liquidatable, regardless of
// collateral price; that short-circuit happens before any price read.
func (e *Engine) IsLiquidatable(user, debtSymbol, collateralSymbol string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitLocked(); err != nil {
		return false, err
	}
	pos, debtCfg, collCfg, err := e.liquidationSubjectsLocked(user, debtSymbol, collateralSymbol)
	if err != nil {
		return false, err
	}
	if pos.Debt[debtSymbol] == 0 {
		return false, nil
	}
	hf, err := e.healthFactorLocked(pos, debtCfg, collCfg, e.now().Unix())
	if err != nil {
		return false, err
	}
	return hf < domain.HealthyFactor, nil
}

// Liquidate repays repayAmount of the target's debtSymbol debt and seizes
// collateralSymbol in exchange:
//
//	seized = repay * debt_price * (10000 + liquidation_threshold) / (collateral_price * 10000)
//
// The liquidator pays the debt asset into custody and receives the seized
// collateral from it; debt reduction and collateral seizure commit together
// or not at all.
func (e *Engine) Liquidate(ctx context.Context, liquidator, user, debtSymbol, collateralSymbol string, repayAmount uint64) (uint64, error) {
	e.mu.Lock()
	if err := e.requireInitLocked(); err != nil {
		e.mu.Unlock()
		return 0, err
	}
	if repayAmount == 0 {
		e.mu.Unlock()
		return 0, fmt.Errorf("engine: liquidate: %w", domain.ErrInvalidAmount)
	}
	pos, debtCfg, collCfg, err := e.liquidationSubjectsLocked(user, debtSymbol, collateralSymbol)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	debtAmt := pos.Debt[debtSymbol]
	if debtAmt == 0 {
		e.mu.Unlock()
		return 0, fmt.Errorf("engine: liquidate %q: %w", user, domain.ErrNotLiquidatable)
	}

	nowSec := e.now().Unix()
	hf, err := e.healthFactorLocked(pos, debtCfg, collCfg, nowSec)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	if hf >= domain.HealthyFactor {
		e.mu.Unlock()
		return 0, fmt.Errorf("engine: liquidate %q at health %d: %w", user, hf, domain.ErrNotLiquidatable)
	}
	if repayAmount > debtAmt {
		e.mu.Unlock()
		return 0, fmt.Errorf("engine: repay %d exceeds debt %d: %w", repayAmount, debtAmt, domain.ErrInvalidAmount)
	}

	seized, err := seizeAmount(repayAmount, debtCfg.LastPrice, collCfg.LastPrice, collCfg.LiquidationThreshold)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	collAmt := pos.Collateral[collateralSymbol]
	if seized > collAmt {
		e.mu.Unlock()
		return 0, fmt.Errorf("engine: seize %d exceeds collateral %d: %w", seized, collAmt, domain.ErrInsufficientCollateral)
	}

	// Two custody legs: the liquidator pays the debt asset in, the vault
	// pays the seized collateral out. If the second leg fails the first is
	// unwound so the liquidator is made whole.
	if err := e.custody.Hold(ctx, liquidator, debtSymbol, repayAmount); err != nil {
		e.mu.Unlock()
		return 0, fmt.Errorf("engine: liquidate custody hold: %w", err)
	}
	if err := e.custody.Release(ctx, collateralSymbol, seized, liquidator); err != nil {
		if refundErr := e.custody.Release(ctx, debtSymbol, repayAmount, liquidator); refundErr != nil {
			e.logger.ErrorContext(ctx, "liquidation refund failed",
				slog.String("liquidator", liquidator),
				slog.String("symbol", debtSymbol),
				slog.Uint64("amount", repayAmount),
				slog.String("error", refundErr.Error()),
			)
		}
		e.mu.Unlock()
		return 0, fmt.Errorf("engine: liquidate custody release: %w", err)
	}

	pos.Debt[debtSymbol] = debtAmt - repayAmount
	pos.Collateral[collateralSymbol] = collAmt - seized
	pos.LastUpdate = nowSec
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "liquidation",
		slog.String("liquidator", liquidator),
		slog.String("user", user),
		slog.String("debt_symbol", debtSymbol),
		slog.String("collateral_symbol", collateralSymbol),
		slog.Uint64("repaid", repayAmount),
		slog.Uint64("seized", seized),
	)
	e.emit(ctx, domain.Event{
		Type:             domain.EventLiquidation,
		User:             user,
		Caller:           liquidator,
		Symbol:           debtSymbol,
		Amount:           repayAmount,
		CollateralSymbol: collateralSymbol,
		SeizedAmount:     seized,
	})
	return seized, nil
}

// LiquidationInfoFor previews a liquidation without touching state. Seizure
// here uses the flat bonus constant rather than the collateral's liquidation
// threshold; see LiquidationInfo.
func (e *Engine) LiquidationInfoFor(user, debtSymbol, collateralSymbol string, repayAmount uint64) (LiquidationInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitLocked(); err != nil {
		return LiquidationInfo{}, err
	}
	pos, debtCfg, collCfg, err := e.liquidationSubjectsLocked(user, debtSymbol, collateralSymbol)
	if err != nil {
		return LiquidationInfo{}, err
	}
	hf, err := e.healthFactorLocked(pos, debtCfg, collCfg, e.now().Unix())
	if err != nil {
		return LiquidationInfo{}, err
	}
	seize, err := seizeAmount(repayAmount, debtCfg.LastPrice, collCfg.LastPrice, domain.LiquidationBonusBps)
	if err != nil {
		return LiquidationInfo{}, err
	}
	return LiquidationInfo{
		HealthFactor: hf,
		Liquidatable: pos.Debt[debtSymbol] > 0 && hf < domain.HealthyFactor,
		SeizeAmount:  seize,
	}, nil
}

// liquidationSubjectsLocked resolves the position and both asset configs for
// a liquidation-path query.
func (e *Engine) liquidationSubjectsLocked(user, debtSymbol, collateralSymbol string) (*domain.Position, *domain.AssetConfig, *domain.AssetConfig, error) {
	pos, ok := e.positions[user]
	if !ok {
		return nil, nil, nil, fmt.Errorf("engine: position for %q: %w", user, domain.ErrUserNoPosition)
	}
	debtCfg, ok := e.assets[debtSymbol]
	if !ok {
		return nil, nil, nil, fmt.Errorf("engine: asset %q: %w", debtSymbol, domain.ErrAssetNotSupported)
	}
	collCfg, ok := e.assets[collateralSymbol]
	if !ok {
		return nil, nil, nil, fmt.Errorf("engine: asset %q: %w", collateralSymbol, domain.ErrAssetNotSupported)
	}
	return pos, debtCfg, collCfg, nil
}

// seizeAmount computes the collateral units owed for repaying repay units of
// the debt asset, with the given bonus in basis points:
//
//	repay * debt_price * (10000 + bonus) / (collateral_price * 10000)
//
// Division truncates toward zero. A zero collateral price cannot be valued
// and is rejected like a stale one.
func seizeAmount(repay, debtPrice, collateralPrice, bonusBps uint64) (uint64, error) {
	if collateralPrice == 0 {
		return 0, fmt.Errorf("engine: collateral price unavailable: %w", domain.ErrStalePrice)
	}
	num := uint256.NewInt(repay)
	num.Mul(num, uint256.NewInt(debtPrice))
	num.Mul(num, uint256.NewInt(domain.BasisPoints+bonusBps))
	den := new(uint256.Int).Mul(uint256.NewInt(collateralPrice), uint256.NewInt(domain.BasisPoints))
	num.Div(num, den)
	if !num.IsUint64() {
		// More than any uint64 collateral balance could cover.
		return 0, fmt.Errorf("engine: seize amount overflows: %w", domain.ErrInsufficientCollateral)
	}
	return num.Uint64(), nil
}
