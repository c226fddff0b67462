package notebook

// applyUpdates merges updates into m. A nil value removes the key; any other
// value upserts it.
func applyUpdates(m, updates map[string]any) {
	for key, value := range updates {
		if value == nil {
			delete(m, key)
			continue
		}
		m[key] = value
	}
}

// EditMetadata applies updates to the document-level metadata mapping.
func (nb *Notebook) EditMetadata(updates map[string]any) {
	if nb.Metadata == nil {
		nb.Metadata = map[string]any{}
	}
	applyUpdates(nb.Metadata, updates)
}

// EditCellMetadata applies updates to the metadata of the cell at index.
func (nb *Notebook) EditCellMetadata(index int, updates map[string]any) error {
	cell, err := nb.Cell(index)
	if err != nil {
		return err
	}
	if cell.Metadata == nil {
		cell.Metadata = map[string]any{}
	}
	applyUpdates(cell.Metadata, updates)
	return nil
}
