package ReducedNS

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/notargets/gorom/types"
	"github.com/notargets/gorom/utils"
)

// SolveBatch runs independent queries on ParallelDegree goroutines, each with its own
// Functional over the shared operators. Trajectories come back in input order, errors of all
// failed queries are combined.
func (s *Solver) SolveBatch(params []OnlineParams, ParallelDegree int) (trs []types.Trajectory, err error) {
	var (
		errs = make([]error, len(params))
		wg   = sync.WaitGroup{}
	)
	if len(params) == 0 {
		return
	}
	trs = make([]types.Trajectory, len(params))
	pm := utils.NewPartitionMap(utils.DefaultParallelDegree(ParallelDegree), len(params))
	for np := 0; np < pm.ParallelDegree; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			iMin, iMax := pm.GetBucketRange(np)
			for i := iMin; i < iMax; i++ {
				var e error
				if trs[i], e = s.Solve(params[i]); e != nil {
					errs[i] = fmt.Errorf("query %d, params = %v: %w", i, params[i].Velocity, e)
				}
			}
		}(np)
	}
	wg.Wait()
	err = multierr.Combine(errs...)
	return
}
