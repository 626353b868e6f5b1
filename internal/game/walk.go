package game

// Position is a board together with the player to move.
type Position struct {
	Board  Board
	ToMove PlayerMark
}

// Walk visits every distinct position reachable from root by alternating
// legal moves, starting with toMove. Terminal positions are visited but not
// expanded. Returning an error from fn stops the walk.
func Walk(root Board, toMove PlayerMark, fn func(Position) error) error {
	seen := map[string]struct{}{}
	var visit func(b Board, m PlayerMark) error
	visit = func(b Board, m PlayerMark) error {
		key := b.Key() + string(m)
		if _, ok := seen[key]; ok {
			return nil
		}
		seen[key] = struct{}{}

		if err := fn(Position{Board: b, ToMove: m}); err != nil {
			return err
		}
		if Classify(b).Finished() {
			return nil
		}
		for _, i := range EmptyCells(b) {
			next, err := b.Place(i, m)
			if err != nil {
				return err
			}
			if err := visit(next, m.Opponent()); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(root.Clone(), toMove)
}
