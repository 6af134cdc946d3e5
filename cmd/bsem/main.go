// Command bsem executes toy programs under the instruction semantics
// domains and exercises the expression simplifier and digests.
package main

func main() {
	Execute()
}
