// IoT resource simulator.
//
// The simulator hosts resources described in a YAML definitions file on a
// shared MQTT broker, automates updates of their models, and drives request
// sessions against resources hosted by other simulators.
package main

func main() {
	Execute()
}
