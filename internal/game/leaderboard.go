package game

import (
	"math/rand"
	"sync"
)

// Leaderboard ranks finished runs by score using a skip list with span
// counts, so rank lookups and range reads stay O(log n).
//
// Ties go to the run that was recorded first. Recording a run ID again
// replaces the earlier entry.
type Leaderboard struct {
	mu     sync.RWMutex
	head   *rankNode
	level  int
	length int
	seq    uint64
	index  map[string]*rankNode
	rng    *rand.Rand
}

// LeaderboardEntry is a ranked run
type LeaderboardEntry struct {
	Rank int        `json:"rank"`
	Run  RunSummary `json:"run"`
}

const (
	maxRankLevel     = 24 // enough for millions of runs
	rankLevelPercent = 25
)

type rankNode struct {
	run  RunSummary
	seq  uint64
	next []*rankNode
	span []int // nodes skipped by next at each level
}

// before reports whether n sorts ahead of o.
func (n *rankNode) before(o *rankNode) bool {
	if n.run.Score != o.run.Score {
		return n.run.Score > o.run.Score
	}
	return n.seq < o.seq
}

// NewLeaderboard creates an empty leaderboard. The seed only shapes the
// internal tower heights, never the ranking.
func NewLeaderboard(seed int64) *Leaderboard {
	return &Leaderboard{
		head: &rankNode{
			next: make([]*rankNode, maxRankLevel),
			span: make([]int, maxRankLevel),
		},
		level: 1,
		index: make(map[string]*rankNode),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (lb *Leaderboard) randomLevel() int {
	level := 1
	for level < maxRankLevel && lb.rng.Intn(100) < rankLevelPercent {
		level++
	}
	return level
}

// Record adds run, replacing any entry with the same ID, and returns its
// rank.
func (lb *Leaderboard) Record(run RunSummary) int {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if old, ok := lb.index[run.ID]; ok {
		lb.remove(old)
	}

	lb.seq++
	n := &rankNode{run: run, seq: lb.seq}

	var update [maxRankLevel]*rankNode
	var rank [maxRankLevel]int

	x := lb.head
	for i := lb.level - 1; i >= 0; i-- {
		if i < lb.level-1 {
			rank[i] = rank[i+1]
		}
		for x.next[i] != nil && x.next[i].before(n) {
			rank[i] += x.span[i]
			x = x.next[i]
		}
		update[i] = x
	}

	level := lb.randomLevel()
	if level > lb.level {
		for i := lb.level; i < level; i++ {
			rank[i] = 0
			update[i] = lb.head
			update[i].span[i] = lb.length
		}
		lb.level = level
	}

	n.next = make([]*rankNode, level)
	n.span = make([]int, level)
	for i := 0; i < level; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n

		n.span[i] = update[i].span[i] - (rank[0] - rank[i])
		update[i].span[i] = rank[0] - rank[i] + 1
	}
	for i := level; i < lb.level; i++ {
		update[i].span[i]++
	}

	lb.length++
	lb.index[run.ID] = n
	return rank[0] + 1
}

// Remove drops the run with id, reporting whether it was present.
func (lb *Leaderboard) Remove(id string) bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	n, ok := lb.index[id]
	if !ok {
		return false
	}
	lb.remove(n)
	return true
}

func (lb *Leaderboard) remove(n *rankNode) {
	var update [maxRankLevel]*rankNode
	x := lb.head
	for i := lb.level - 1; i >= 0; i-- {
		for x.next[i] != nil && x.next[i].before(n) {
			x = x.next[i]
		}
		update[i] = x
	}

	for i := 0; i < lb.level; i++ {
		if update[i].next[i] == n {
			update[i].span[i] += n.span[i] - 1
			update[i].next[i] = n.next[i]
		} else {
			update[i].span[i]--
		}
	}
	for lb.level > 1 && lb.head.next[lb.level-1] == nil {
		lb.level--
	}

	lb.length--
	delete(lb.index, n.run.ID)
}

// Rank returns the 1-based rank of id, or 0 when it is not on the board.
func (lb *Leaderboard) Rank(id string) int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	n, ok := lb.index[id]
	if !ok {
		return 0
	}

	rank := 0
	x := lb.head
	for i := lb.level - 1; i >= 0; i-- {
		for x.next[i] != nil && (x.next[i] == n || x.next[i].before(n)) {
			rank += x.span[i]
			x = x.next[i]
		}
		if x == n {
			return rank
		}
	}
	return 0
}

// At returns the entry at rank.
func (lb *Leaderboard) At(rank int) (LeaderboardEntry, bool) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if rank <= 0 || rank > lb.length {
		return LeaderboardEntry{}, false
	}
	x := lb.seek(rank - 1).next[0]
	return LeaderboardEntry{Rank: rank, Run: x.run}, true
}

// Range returns ranks start..end inclusive, clamped to the board.
func (lb *Leaderboard) Range(start, end int) []LeaderboardEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	start = max(start, 1)
	end = min(end, lb.length)
	if start > end {
		return nil
	}

	out := make([]LeaderboardEntry, 0, end-start+1)
	x := lb.seek(start - 1).next[0]
	for r := start; r <= end && x != nil; r++ {
		out = append(out, LeaderboardEntry{Rank: r, Run: x.run})
		x = x.next[0]
	}
	return out
}

// Top returns the best n runs.
func (lb *Leaderboard) Top(n int) []LeaderboardEntry {
	return lb.Range(1, n)
}

// Around returns up to above runs ranked better than id, the run itself and
// up to below runs ranked worse.
func (lb *Leaderboard) Around(id string, above, below int) []LeaderboardEntry {
	rank := lb.Rank(id)
	if rank == 0 {
		return nil
	}
	return lb.Range(rank-above, rank+below)
}

// Len returns the number of ranked runs
func (lb *Leaderboard) Len() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.length
}

// seek returns the node at rank, with the head standing for rank 0.
func (lb *Leaderboard) seek(rank int) *rankNode {
	traversed := 0
	x := lb.head
	for i := lb.level - 1; i >= 0; i-- {
		for x.next[i] != nil && traversed+x.span[i] <= rank {
			traversed += x.span[i]
			x = x.next[i]
		}
	}
	return x
}
