// Command sitectl manages the stored site document offline: export, import,
// validation and admin password hashing.
package main

func main() {
	Execute()
}
