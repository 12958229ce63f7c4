package capture

import "math"

// MergeEvents runs the five-pass, order-preserving transformation over a
// recording's raw action events: drop invalid keyboard events, drop
// redundant mouse moves, merge click pairs, detect drags, and merge
// consecutive key-downs into text. Each pass is idempotent and every
// produced parent retains its consumed primitives as Children, so nothing
// upstream of storage is ever discarded outright.
//
// Runs as an offline pass over an already-persisted event list (the
// post-processing step), not inline in the router — the merge windows
// (double-click interval, drag distance) need to look both forward and
// backward across primitives, which the router's single-pass, streaming
// design deliberately does not support.
func MergeEvents(events []*ActionEvent, doubleClickInterval float64, doubleClickDistance float64) []*ActionEvent {
	events = filterInvalidKeyboard(events)
	events = filterRedundantMoves(events)
	events = mergeClicks(events, doubleClickInterval, doubleClickDistance)
	events = detectDrags(events)
	events = mergeKeyPresses(events)
	return events
}

// filterInvalidKeyboard drops key-up events with no preceding key-down for
// the same key (a hook missing the down at the recording start boundary).
// Key-downs that are never released are kept.
func filterInvalidKeyboard(events []*ActionEvent) []*ActionEvent {
	down := map[string]bool{}
	out := make([]*ActionEvent, 0, len(events))
	for _, e := range events {
		if e.Kind() == KindKeyDown {
			down[e.Canonical.Name] = true
			out = append(out, e)
		} else if e.Kind() == KindKeyUp {
			if !down[e.Canonical.Name] {
				continue
			}
			down[e.Canonical.Name] = false
			out = append(out, e)
		} else {
			out = append(out, e)
		}
	}
	return out
}

// filterRedundantMoves drops a mouse.move whose position exactly matches
// the previous retained move (auto-repeat from a stuck or polling hook).
func filterRedundantMoves(events []*ActionEvent) []*ActionEvent {
	out := make([]*ActionEvent, 0, len(events))
	var lastMove *ActionEvent
	for _, e := range events {
		if e.Kind() == KindMouseMove {
			if lastMove != nil && lastMove.MouseX == e.MouseX && lastMove.MouseY == e.MouseY {
				continue
			}
			lastMove = e
		}
		out = append(out, e)
	}
	return out
}

// mergeClicks folds a down immediately followed by an up on the same button,
// each coordinate within distance of the down's, into a mouse.singleclick,
// then folds two adjacent singleclicks on the same button within the
// configured interval/distance into a mouse.doubleclick.
func mergeClicks(events []*ActionEvent, interval, distance float64) []*ActionEvent {
	out := make([]*ActionEvent, 0, len(events))
	for i := 0; i < len(events); i++ {
		e := events[i]
		if e.Kind() != KindMouseDown {
			out = append(out, e)
			continue
		}
		j := i + 1
		if j >= len(events) || events[j].Kind() != KindMouseUp || events[j].Button != e.Button ||
			math.Abs(events[j].MouseX-e.MouseX) > distance || math.Abs(events[j].MouseY-e.MouseY) > distance {
			out = append(out, e)
			continue
		}
		up := events[j]
		click := NewActionEvent(KindMouseSingleClick, e.Timestamp())
		click.MouseX, click.MouseY = e.MouseX, e.MouseY
		click.Button = e.Button
		click.Children = []*ActionEvent{e, up}
		out = append(out, click)
		i = j
	}

	merged := make([]*ActionEvent, 0, len(out))
	for i := 0; i < len(out); i++ {
		e := out[i]
		if e.Kind() != KindMouseSingleClick || i+1 >= len(out) || out[i+1].Kind() != KindMouseSingleClick {
			merged = append(merged, e)
			continue
		}
		next := out[i+1]
		dt := next.Timestamp() - e.Timestamp()
		dist := math.Hypot(next.MouseX-e.MouseX, next.MouseY-e.MouseY)
		if e.Button == next.Button && dt <= interval && dist <= distance {
			dbl := NewActionEvent(KindMouseDoubleClick, e.Timestamp())
			dbl.MouseX, dbl.MouseY = e.MouseX, e.MouseY
			dbl.Button = e.Button
			dbl.Children = []*ActionEvent{e, next}
			merged = append(merged, dbl)
			i++
			continue
		}
		merged = append(merged, e)
	}
	return merged
}

// detectDrags folds a mouse.down, any number of mouse.move, and a
// mouse.up on the same button into a single mouse.drag when the total
// displacement between down and up is nonzero (a down/up with no
// intervening movement was already folded into a click by mergeClicks and
// never reaches this pass).
func detectDrags(events []*ActionEvent) []*ActionEvent {
	out := make([]*ActionEvent, 0, len(events))
	for i := 0; i < len(events); i++ {
		e := events[i]
		if e.Kind() != KindMouseDown {
			out = append(out, e)
			continue
		}
		j := i + 1
		var moves []*ActionEvent
		for j < len(events) && events[j].Kind() == KindMouseMove {
			moves = append(moves, events[j])
			j++
		}
		if len(moves) == 0 || j >= len(events) || events[j].Kind() != KindMouseUp || events[j].Button != e.Button ||
			(events[j].MouseX == e.MouseX && events[j].MouseY == e.MouseY) {
			out = append(out, e)
			continue
		}
		up := events[j]
		drag := NewActionEvent(KindMouseDrag, e.Timestamp())
		drag.Button = e.Button
		drag.StartX, drag.StartY = e.MouseX, e.MouseY
		drag.DX = up.MouseX - e.MouseX
		drag.DY = up.MouseY - e.MouseY
		drag.Children = append([]*ActionEvent{e}, moves...)
		drag.Children = append(drag.Children, up)
		out = append(out, drag)
		i = j
	}
	return out
}

// mergeKeyPresses folds a run of key-down/key-up pairs, none of them a
// modifier, into a single key.type event carrying the typed text and the
// de-duplicated, ordered canonical key names.
func mergeKeyPresses(events []*ActionEvent) []*ActionEvent {
	out := make([]*ActionEvent, 0, len(events))
	isModifier := func(name string) bool {
		switch name {
		case "ctrl", "shift", "alt", "cmd", "meta":
			return true
		}
		return false
	}

	i := 0
	for i < len(events) {
		e := events[i]
		if e.Kind() != KindKeyDown || isModifier(e.Canonical.Name) {
			out = append(out, e)
			i++
			continue
		}

		var run []*ActionEvent
		var text, keys []string
		seen := map[string]bool{}
		j := i
		for j+1 < len(events) {
			down := events[j]
			if down.Kind() != KindKeyDown || isModifier(down.Canonical.Name) {
				break
			}
			up := findMatchingUp(events, j+1, down.Canonical.Name)
			if up < 0 {
				break
			}
			run = append(run, down, events[up])
			if down.Key.Char != "" {
				text = append(text, down.Key.Char)
			} else {
				text = append(text, down.Canonical.Name)
			}
			if !seen[down.Canonical.Name] {
				seen[down.Canonical.Name] = true
				keys = append(keys, down.Canonical.Name)
			}
			next := up + 1
			if next >= len(events) || events[next].Kind() != KindKeyDown {
				j = up
				break
			}
			j = up
		}

		if len(run) == 0 {
			out = append(out, e)
			i++
			continue
		}

		typeEvt := NewActionEvent(KindKeyType, e.Timestamp())
		typeEvt.Text = joinStrings(text)
		typeEvt.Keys = keys
		typeEvt.Children = run
		out = append(out, typeEvt)
		i = j + 1
	}
	return out
}

func findMatchingUp(events []*ActionEvent, from int, name string) int {
	for k := from; k < len(events); k++ {
		if events[k].Kind() == KindKeyUp && events[k].Canonical.Name == name {
			return k
		}
		if events[k].Kind() == KindKeyDown {
			return -1
		}
	}
	return -1
}

func joinStrings(parts []string) string {
	out := ""
	for _, p := range parts {
		out += p
	}
	return out
}
