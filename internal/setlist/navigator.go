package setlist

// FooterMode says what the bottom of a performance page announces.
type FooterMode string

const (
	// FooterNextMusic carries the next song in the same block.
	FooterNextMusic FooterMode = "NEXT_MUSIC"
	// FooterNextPause carries the upcoming pause in the same block.
	FooterNextPause FooterMode = "NEXT_PAUSE"
	// FooterEndOfBlock marks the boundary before a later non-empty block;
	// the next block's first item is deliberately not revealed.
	FooterEndOfBlock FooterMode = "END_OF_BLOCK"
	// FooterNone means the cursor sits on the last item of the whole set.
	FooterNone FooterMode = "NONE"
)

// PageDescriptor is what the renderer needs for one page: the item under
// the cursor, its block's name, and the footer hint. FooterItem is only
// set for the NEXT_MUSIC and NEXT_PAUSE modes.
type PageDescriptor struct {
	Item       Item       `json:"-"`
	BlockName  string     `json:"blockName"`
	FooterMode FooterMode `json:"footerMode"`
	FooterItem Item       `json:"-"`
}

// NextUp computes the footer for the cursor (blockIdx, itemIdx). It is a
// pure function of the setlist and the cursor, re-evaluated fresh on every
// page turn; there is no navigation state kept anywhere.
func NextUp(s *Setlist, blockIdx, itemIdx int) PageDescriptor {
	desc := PageDescriptor{FooterMode: FooterNone}

	item, ok := s.ItemAt(blockIdx, itemIdx)
	if !ok {
		return desc
	}
	desc.Item = item
	desc.BlockName = s.Blocks[blockIdx].Name

	items := s.Blocks[blockIdx].Items
	if itemIdx+1 < len(items) {
		next := items[itemIdx+1]
		if _, isPause := next.(Pause); isPause {
			desc.FooterMode = FooterNextPause
		} else {
			desc.FooterMode = FooterNextMusic
		}
		desc.FooterItem = next
		return desc
	}

	// Last item of its block: the first later block with any items marks
	// a block boundary; if none has items the set is over.
	for b := blockIdx + 1; b < len(s.Blocks); b++ {
		if len(s.Blocks[b].Items) > 0 {
			desc.FooterMode = FooterEndOfBlock
			return desc
		}
	}
	return desc
}
