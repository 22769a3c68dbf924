package chainclaim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/chanclaim/chainfee"
)

func TestFirstAttemptPicksHighestAffordableTier(t *testing.T) {
	estimator := &chainfee.StaticEstimator{
		HighPriorityFeePerKW: 5000,
		NormalFeePerKW:       2000,
		BackgroundFeePerKW:   1000,
	}

	// weight=1000 => HighPriority fee = 5000*1000/1000 = 5000, which must
	// be strictly less than inputAmounts to be selected.
	outputValue, feerate, err := ComputeFee(1000, 10_000, 0, estimator)
	require.NoError(t, err)
	require.EqualValues(t, 5000, feerate)
	require.EqualValues(t, 10_000-5000, outputValue)
}

func TestFirstAttemptUneconomical(t *testing.T) {
	estimator := &chainfee.StaticEstimator{
		HighPriorityFeePerKW: 5000,
		NormalFeePerKW:       5000,
		BackgroundFeePerKW:   5000,
	}

	_, _, err := ComputeFee(1000, 4000, 0, estimator)
	require.ErrorIs(t, err, ErrClaimUneconomical)
}

// TestBumpAttemptMeetsBIP125Floor exercises end-to-end scenario 6 from the
// specification: predicted_weight=1000, input=1_000_000,
// previous_feerate=5000, HighPriority=5000.
func TestBumpAttemptMeetsBIP125Floor(t *testing.T) {
	estimator := &chainfee.StaticEstimator{HighPriorityFeePerKW: 5000}

	outputValue, feerate, err := ComputeFee(1000, 1_000_000, 5000, estimator)
	require.NoError(t, err)

	previousFee := chainfee.SatPerKWeight(5000).FeeForWeight(1000)
	minRelayFee := chainfee.MinRelayFeeSatPerKW.FeeForWeight(1000)
	floor := previousFee + minRelayFee

	bumpedFee := chainfee.SatPerKWeight(5000).FeeForWeight(1000 * 1000 / 750)
	wantFee := bumpedFee
	if wantFee < floor {
		wantFee = floor
	}

	require.GreaterOrEqual(t, int64(wantFee), int64(floor))
	require.EqualValues(t, 1_000_000-int64(wantFee), outputValue)
	require.NotZero(t, feerate)
}

func TestBumpAttemptNeverReturnsBelowPreviousPlusMinRelay(t *testing.T) {
	estimator := &chainfee.StaticEstimator{HighPriorityFeePerKW: 1}

	for _, prev := range []chainfee.SatPerKWeight{1, 100, 10_000} {
		_, feerate, err := ComputeFee(5000, 10_000_000, prev, estimator)
		require.NoError(t, err)
		if feerate == prev {
			// The all-excess-burns-to-fee path is allowed to return the
			// unchanged feerate.
			continue
		}
		newFee := feerate.FeeForWeight(5000)
		previousFee := prev.FeeForWeight(5000)
		minRelayFee := chainfee.MinRelayFeeSatPerKW.FeeForWeight(5000)
		require.GreaterOrEqual(t, int64(newFee), int64(previousFee+minRelayFee))
	}
}
