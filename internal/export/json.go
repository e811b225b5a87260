package export

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChainNode is one chapter of the JSON export. The chain never branches, so
// it is a singly linked list; it is encoded as a tree whose children array
// holds at most the next chapter.
type ChainNode struct {
	Title   string
	Author  string
	Content string
	Next    *ChainNode
}

// MarshalJSON writes the whole list into one buffer, nesting each next
// chapter as {"title","author","content","children":[next]}.
func (n *ChainNode) MarshalJSON() ([]byte, error) {
	var (
		buf     bytes.Buffer
		scratch bytes.Buffer
	)
	enc := json.NewEncoder(&scratch)
	enc.SetEscapeHTML(false)

	str := func(s string) error {
		scratch.Reset()
		if err := enc.Encode(s); err != nil {
			return err
		}
		buf.Write(bytes.TrimRight(scratch.Bytes(), "\n"))
		return nil
	}

	depth := 0
	for cur := n; cur != nil; cur = cur.Next {
		if depth > 0 {
			buf.WriteString(`,"children":[`)
		}
		buf.WriteString(`{"title":`)
		if err := str(cur.Title); err != nil {
			return nil, err
		}
		if cur.Author != "" {
			buf.WriteString(`,"author":`)
			if err := str(cur.Author); err != nil {
				return nil, err
			}
		}
		buf.WriteString(`,"content":`)
		if err := str(cur.Content); err != nil {
			return nil, err
		}
		depth++
	}

	for i := range depth {
		if i > 0 {
			buf.WriteByte(']')
		}
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func (n *ChainNode) Len() int {
	c := 0
	for ; n != nil; n = n.Next {
		c++
	}
	return c
}

// BuildChain links chain, oldest first, and returns the head.
func BuildChain(chain []RenderedChapter) *ChainNode {
	var head *ChainNode
	for i := len(chain) - 1; i >= 0; i-- {
		head = &ChainNode{
			Title:   chain[i].Title,
			Author:  chain[i].Author,
			Content: chain[i].Markdown,
			Next:    head,
		}
	}
	return head
}

func (w *Writer) writeJSON(chain []RenderedChapter) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode([]*ChainNode{BuildChain(chain)}); err != nil {
		return fmt.Errorf("json: %w", err)
	}

	return w.writeFile(w.baseName()+".json", buf.Bytes())
}
