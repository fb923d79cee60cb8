package projection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidPath indicates a target path that cannot be parsed.
	ErrInvalidPath = errors.New("invalid target path")

	// ErrPathConflict indicates a path crossing a value of an incompatible shape.
	ErrPathConflict = errors.New("target path conflicts with an existing value")
)

type segment struct {
	key     string
	index   int
	indexed bool
}

// parsePath splits "a.b[2].c" into its segments.
func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	parts := strings.Split(path, ".")
	segments := make([]segment, 0, len(parts))

	for _, part := range parts {
		open := strings.IndexByte(part, '[')
		if open < 0 {
			if part == "" || strings.ContainsRune(part, ']') {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
			}

			segments = append(segments, segment{key: part})

			continue
		}

		if open == 0 || !strings.HasSuffix(part, "]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}

		index, err := strconv.Atoi(part[open+1 : len(part)-1])
		if err != nil || index < 0 {
			return nil, fmt.Errorf("%w: bad index in %q", ErrInvalidPath, path)
		}

		segments = append(segments, segment{key: part[:open], index: index, indexed: true})
	}

	return segments, nil
}

// SetPath assigns value inside obj at a dotted path whose segments may carry one
// bracketed index. Intermediate objects and lists are created on demand; lists are
// padded with empty objects until the index exists. Sibling keys are never touched.
func SetPath(obj map[string]any, path string, value any) error {
	segments, err := parsePath(path)
	if err != nil {
		return err
	}

	current := obj

	for i, seg := range segments {
		last := i == len(segments)-1

		if !seg.indexed {
			if last {
				current[seg.key] = value

				return nil
			}

			next, err := childObject(current, seg.key, path)
			if err != nil {
				return err
			}

			current = next

			continue
		}

		list, err := childList(current, seg.key, path)
		if err != nil {
			return err
		}

		for len(list) <= seg.index {
			list = append(list, map[string]any{})
		}

		current[seg.key] = list

		if last {
			list[seg.index] = value

			return nil
		}

		next, ok := list[seg.index].(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s[%d] in %q is not an object", ErrPathConflict, seg.key, seg.index, path)
		}

		current = next
	}

	return nil
}

func childObject(parent map[string]any, key, path string) (map[string]any, error) {
	existing, present := parent[key]
	if !present || existing == nil {
		child := map[string]any{}
		parent[key] = child

		return child, nil
	}

	child, ok := existing.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %q is not an object", ErrPathConflict, key, path)
	}

	return child, nil
}

func childList(parent map[string]any, key, path string) ([]any, error) {
	existing, present := parent[key]
	if !present || existing == nil {
		return []any{}, nil
	}

	list, ok := existing.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %q is not a list", ErrPathConflict, key, path)
	}

	return list, nil
}
