package export

import (
	"encoding/json"
	"os"
)

// JSON writes the tables as a name-keyed object of record arrays.
func JSON(tables []Table, output string) error {
	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer file.Close()

	payload := make(map[string][]map[string]any, len(tables))
	for _, table := range tables {
		rows := make([]map[string]any, 0, len(table.Records))
		for _, record := range table.Records {
			rows = append(rows, record)
		}
		payload[table.Name] = rows
	}

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(payload)
}
