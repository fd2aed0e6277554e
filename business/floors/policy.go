package floors

// Branch names the path a decision took.
type Branch string

const (
	BranchLowestOnly Branch = "lowest_only"
	BranchColdStart  Branch = "cold_start"
	BranchExploit    Branch = "exploit"
	BranchExplore    Branch = "explore"
	BranchNearest    Branch = "nearest"
)

type choice struct {
	index      int
	propensity float64
	branch     Branch
}

// chooseUniform picks one of n combinations at random.
func chooseUniform(n int, s Stream) choice {
	return choice{
		index:      s.IntN(n),
		propensity: 1 / float64(n),
		branch:     BranchColdStart,
	}
}

// bestIndex returns the first maximal estimate.
func bestIndex(estimates []Estimate) int {
	best := 0
	for i := 1; i < len(estimates); i++ {
		if estimates[i].Value > estimates[best].Value {
			best = i
		}
	}
	return best
}

// chooseEpsilonGreedy exploits the best estimate unless a uniform draw falls
// below epsilon, in which case a random combination is served. A random draw
// that lands on the best combination keeps the greedy propensity.
func chooseEpsilonGreedy(estimates []Estimate, epsilon float64, s Stream) choice {
	n := float64(len(estimates))
	best := bestIndex(estimates)
	greedy := (1 - epsilon) + epsilon/n

	if s.Float64() >= epsilon {
		return choice{index: best, propensity: greedy, branch: BranchExploit}
	}

	r := s.IntN(len(estimates))
	if r == best {
		return choice{index: r, propensity: greedy, branch: BranchExplore}
	}
	return choice{index: r, propensity: epsilon / n, branch: BranchExplore}
}
