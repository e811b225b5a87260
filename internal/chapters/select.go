package chapters

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMultipleSelectors = errors.New("only one of --chapter, --range and --list may be used")
	ErrEmptySelection    = errors.New("selection matched no chapters")
)

// Filter narrows a walked chain. Positions are 1-based, oldest first. With no
// selector the chain is returned unchanged.
func Filter(all Chain, chapter, rng, list string) (Chain, error) {
	set := 0
	for _, s := range []string{chapter, rng, list} {
		if strings.TrimSpace(s) != "" {
			set++
		}
	}
	if set > 1 {
		return nil, ErrMultipleSelectors
	}

	var out Chain
	var err error
	switch {
	case chapter != "":
		out = FilterByTitle(all, chapter)
		if len(out) == 0 {
			if idx, convErr := strconv.Atoi(strings.TrimSpace(chapter)); convErr == nil && idx > 0 && idx <= len(all) {
				out = Chain{all[idx-1]}
			}
		}
	case rng != "":
		out, err = FilterRange(all, rng)
	case list != "":
		out, err = FilterList(all, list)
	default:
		return all, nil
	}

	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmptySelection
	}
	return out, nil
}

func FilterByTitle(all Chain, title string) Chain {
	var out Chain
	for _, c := range all {
		if strings.EqualFold(c.Title, strings.TrimSpace(title)) {
			out = append(out, c)
		}
	}
	return out
}

func FilterRange(all Chain, rng string) (Chain, error) {
	parts := strings.Split(rng, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid range %q", rng)
	}

	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("invalid range %q", rng)
	}
	if start <= 0 || end <= 0 || start > end || end > len(all) {
		return nil, fmt.Errorf("range %q outside 1-%d", rng, len(all))
	}

	return all[start-1 : end], nil
}

func FilterList(all Chain, list string) (Chain, error) {
	var out Chain
	for p := range strings.SplitSeq(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		idx, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid list entry %q", p)
		}
		if idx <= 0 || idx > len(all) {
			continue
		}

		out = append(out, all[idx-1])
	}

	return out, nil
}
