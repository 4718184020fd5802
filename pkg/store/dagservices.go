package store

import (
	"sort"

	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/types"
)

// Tips returns every entry that belongs to tree and has no child within
// the main DAG — including the root entry itself if it has no children.
func (s *InMemoryStore) Tips(tree types.ID) ([]types.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasChild := make(map[types.ID]bool)
	var inContext []types.ID

	for id, e := range s.entries {
		if !entryInTree(e, id, tree) {
			continue
		}
		inContext = append(inContext, id)
		for _, p := range e.Parents() {
			hasChild[p] = true
		}
	}

	var tips []types.ID
	for _, id := range inContext {
		if !hasChild[id] {
			tips = append(tips, id)
		}
	}
	sort.Slice(tips, func(i, j int) bool { return tips[i] < tips[j] })
	return tips, nil
}

// SubtreeTips is Tips projected through the named subtree's parent sets.
func (s *InMemoryStore) SubtreeTips(tree types.ID, subtree string) ([]types.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hasChild := make(map[types.ID]bool)
	var inContext []types.ID

	for id, e := range s.entries {
		if !entryInTree(e, id, tree) || !e.InSubtree(subtree) {
			continue
		}
		inContext = append(inContext, id)
		for _, p := range e.SubtreeParents(subtree) {
			hasChild[p] = true
		}
	}

	var tips []types.ID
	for _, id := range inContext {
		if !hasChild[id] {
			tips = append(tips, id)
		}
	}
	sort.Slice(tips, func(i, j int) bool { return tips[i] < tips[j] })
	return tips, nil
}

// Heights computes, via Kahn-style topological BFS, the longest-path
// distance from any context-root to every entry in tree (or, if subtree
// is non-nil, within that subtree's projected DAG). Parents outside the
// context do not count toward in-degree. A cycle or in-degree mismatch
// fails with a DataIntegrity error rather than looping forever.
func (s *InMemoryStore) Heights(tree types.ID, subtree *string) (map[types.ID]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heightsLocked(tree, subtree)
}

func (s *InMemoryStore) heightsLocked(tree types.ID, subtree *string) (map[types.ID]uint64, error) {
	inContext := make(map[types.ID]bool)
	parentsOf := make(map[types.ID][]types.ID)

	for id, e := range s.entries {
		var member bool
		if subtree != nil {
			member = entryInTree(e, id, tree) && e.InSubtree(*subtree)
		} else {
			member = entryInTree(e, id, tree)
		}
		if !member {
			continue
		}
		inContext[id] = true
		if subtree != nil {
			parentsOf[id] = e.SubtreeParents(*subtree)
		} else {
			parentsOf[id] = e.Parents()
		}
	}

	inDegree := make(map[types.ID]int, len(inContext))
	children := make(map[types.ID][]types.ID)
	for id := range inContext {
		degree := 0
		for _, p := range parentsOf[id] {
			if inContext[p] {
				degree++
				children[p] = append(children[p], id)
			}
		}
		inDegree[id] = degree
	}

	heights := make(map[types.ID]uint64, len(inContext))
	queue := make([]types.ID, 0)
	for id := range inContext {
		heights[id] = 0
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	processed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		processed++

		for _, child := range children[current] {
			if newHeight := heights[current] + 1; newHeight > heights[child] {
				heights[child] = newHeight
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			} else if inDegree[child] < 0 {
				return nil, types.NewError(types.KindDataIntegrity, "negative in-degree detected during height computation")
			}
		}
	}

	if processed != len(inContext) {
		return nil, types.NewError(types.KindDataIntegrity, "cycle or disconnected context detected during height computation")
	}

	return heights, nil
}

// History returns every entry reachable by walking main parents
// backward from tips, staying inside tree, ordered by (height, id)
// ascending so that a parent always precedes its children.
func (s *InMemoryStore) History(tree types.ID, tips []types.ID) ([]*dag.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reachable, err := s.reachableLocked(tree, nil, tips, false)
	if err != nil {
		return nil, err
	}
	return s.orderedLocked(tree, nil, reachable)
}

// SubtreeHistory is History projected through the named subtree.
func (s *InMemoryStore) SubtreeHistory(tree types.ID, subtree string, tips []types.ID) ([]*dag.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := subtree
	reachable, err := s.reachableLocked(tree, &name, tips, true)
	if err != nil {
		return nil, err
	}
	return s.orderedLocked(tree, &name, reachable)
}

func (s *InMemoryStore) reachableLocked(tree types.ID, subtree *string, tips []types.ID, requireSubtree bool) (map[types.ID]bool, error) {
	visited := make(map[types.ID]bool)
	queue := append([]types.ID{}, tips...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}

		e, ok := s.entries[id]
		if !ok {
			continue
		}
		if !entryInTree(e, id, tree) {
			continue
		}
		if requireSubtree && !e.InSubtree(*subtree) {
			continue
		}

		visited[id] = true

		var parents []types.ID
		if subtree != nil {
			parents = e.SubtreeParents(*subtree)
		} else {
			parents = e.Parents()
		}
		queue = append(queue, parents...)
	}

	return visited, nil
}

func (s *InMemoryStore) orderedLocked(tree types.ID, subtree *string, reachable map[types.ID]bool) ([]*dag.Entry, error) {
	heights, err := s.heightsLocked(tree, subtree)
	if err != nil {
		return nil, err
	}

	ids := make([]types.ID, 0, len(reachable))
	for id := range reachable {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		hi, hj := heights[ids[i]], heights[ids[j]]
		if hi != hj {
			return hi < hj
		}
		return ids[i] < ids[j]
	})

	result := make([]*dag.Entry, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.entries[id])
	}
	return result, nil
}

// entryInTree reports whether e (whose own id is selfID) belongs to tree:
// either e is itself the top-level root entry of tree, or e.Root == tree.
func entryInTree(e *dag.Entry, selfID types.ID, tree types.ID) bool {
	return e.InTree(tree, selfID)
}
