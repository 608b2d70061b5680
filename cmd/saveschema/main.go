// saveschema prints the JSON schema of the save file format.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nathoo/idlecore/engine/save"
)

func main() {
	out, err := json.MarshalIndent(save.Schema(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
