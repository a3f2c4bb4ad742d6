package similarity

// Comparer memoizes CompareNames for one reconciliation run. It is not safe
// for concurrent use; build one per run.
type Comparer struct {
	threshold int
	opts      Options
	memo      map[[2]string]Result
	hits      int
}

func NewComparer(threshold int, opts Options) *Comparer {
	return &Comparer{
		threshold: threshold,
		opts:      opts,
		memo:      make(map[[2]string]Result),
	}
}

func (c *Comparer) Compare(name1, name2 string) Result {
	key := [2]string{name1, name2}
	if res, ok := c.memo[key]; ok {
		c.hits++
		return res
	}
	res := CompareNames(name1, name2, c.threshold, c.opts)
	c.memo[key] = res
	return res
}

func (c *Comparer) Normalize(name string) string {
	return Normalize(name, c.opts)
}

// CacheHits reports how many comparisons were answered from the memo.
func (c *Comparer) CacheHits() int {
	return c.hits
}
