// Command n50osm converts Norwegian N50 topographic data to OSM XML.
package main

import "github.com/n50osm/n50osm/internal/cli"

func main() {
	cli.Execute()
}
