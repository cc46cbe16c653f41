// Command wasapi plays, records and inspects audio through the Windows Audio Session API.
package main

func main() {
	Execute()
}
