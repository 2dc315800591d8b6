package diagnostic

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"driftlab/internal/idhash"
)

// resampleScores draws count resamples of size sampleSize from source (with
// replacement) and scores each against the fixed reference PMF. Resample i
// uses a sub-seed derived from (seed, i), so scores[i] depends only on the
// inputs and i: the result is identical at any parallelism, and workers
// never contend on shared randomness.
func resampleScores(ctx context.Context, refPMF, source []float64, g Grid, est Estimator, sampleSize, count int, seed int64, parallelism int) ([]float64, error) {
	scores := make([]float64, count)
	if count == 0 || len(source) == 0 {
		return scores, nil
	}
	if sampleSize <= 0 {
		sampleSize = len(source)
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(parallelism)

	for i := 0; i < count; i++ {
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(idhash.DeriveSubSeed(seed, i)))
			resample := make([]float64, sampleSize)
			for j := range resample {
				resample[j] = source[rng.Intn(len(source))]
			}

			scores[i] = JSDistance(refPMF, est.Estimate(resample, g))
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
