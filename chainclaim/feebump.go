package chainclaim

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/go-errors/errors"

	"github.com/lightninglabs/chanclaim/chainfee"
)

// ErrClaimUneconomical is returned by ComputeFee when even the cheapest
// estimator tier would consume the entire input value.
var ErrClaimUneconomical = errors.New("chainclaim: claim uneconomical at every fee tier")

// ComputeFee is the engine's pure decision function: given a package's
// predicted weight and input sum, a prior feerate (zero on a first attempt),
// and a fee estimator, it returns the output value to place on the claim
// transaction and the feerate actually used. It performs no I/O and no
// mutation; callers own updating an OnchainRequest's feerate_previous with
// the returned value.
func ComputeFee(
	predictedWeight int64,
	inputAmounts btcutil.Amount,
	previousFeerate chainfee.SatPerKWeight,
	estimator chainfee.Estimator,
) (btcutil.Amount, chainfee.SatPerKWeight, error) {

	if previousFeerate == 0 {
		return firstAttemptFee(predictedWeight, inputAmounts, estimator)
	}
	return bumpAttemptFee(predictedWeight, inputAmounts, previousFeerate, estimator)
}

func firstAttemptFee(
	predictedWeight int64,
	inputAmounts btcutil.Amount,
	estimator chainfee.Estimator,
) (btcutil.Amount, chainfee.SatPerKWeight, error) {

	for _, tier := range []chainfee.Tier{
		chainfee.HighPriority, chainfee.Normal, chainfee.Background,
	} {
		feerate, err := estimator.EstimateFeePerKW(tier)
		if err != nil {
			return 0, 0, err
		}
		fee := feerate.FeeForWeight(predictedWeight)
		if fee < inputAmounts {
			return inputAmounts - fee, feerate, nil
		}
	}
	return 0, 0, ErrClaimUneconomical
}

func bumpAttemptFee(
	predictedWeight int64,
	inputAmounts btcutil.Amount,
	previousFeerate chainfee.SatPerKWeight,
	estimator chainfee.Estimator,
) (btcutil.Amount, chainfee.SatPerKWeight, error) {

	previousFee := previousFeerate.FeeForWeight(predictedWeight)

	highPriority, err := estimator.EstimateFeePerKW(chainfee.HighPriority)
	if err != nil {
		return 0, 0, err
	}

	bumpedFee := previousFeerate.FeeForWeight(predictedWeight * 1000 / 750)
	newFee := bumpedFee
	if previousFeerate < highPriority {
		highFee := highPriority.FeeForWeight(predictedWeight)
		if highFee > newFee {
			newFee = highFee
		}
	}

	if inputAmounts <= newFee {
		// The excess burns entirely to fees. The caller decides
		// whether to still broadcast (e.g. a justice transaction
		// must go out regardless of profitability).
		return 0, previousFeerate, nil
	}

	minRelayFee := chainfee.MinRelayFeeSatPerKW.FeeForWeight(predictedWeight)
	floor := previousFee + minRelayFee
	if newFee < floor {
		newFee = floor
	}

	newFeerate := chainfee.SatPerKWeight(uint64(newFee) * 1000 / uint64(predictedWeight))
	return inputAmounts - newFee, newFeerate, nil
}
