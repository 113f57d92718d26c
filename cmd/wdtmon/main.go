package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/robotalks/robowdt/pkg/telemetry/mqtt"
	"github.com/robotalks/robowdt/pkg/telemetry/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/robowdt/"
)

func init() {
	if val := os.Getenv("ROBOWDT_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func activity(ok bool) string {
	if ok {
		return "ACTIVE"
	}
	return "INACTIVE"
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("+/"+mqtt.LogTopic, mqtt.Handler(func(topic string, payload []byte) {
		msg, err := msgs.DecodeLogLine(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Println(msg.Line().String())
	}))
	q.Sub("+/"+mqtt.StatusTopic, mqtt.Handler(func(topic string, payload []byte) {
		msg, err := msgs.DecodeStatusReport(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: boot %d at %s generator [%s] receiver [%s]",
			strings.TrimSuffix(topic, "/"+mqtt.StatusTopic), msg.Boot,
			time.Unix(0, msg.TimestampNs).Format(time.StampMilli),
			activity(msg.Generation), activity(msg.Reception))
	}))
	<-(chan struct{})(nil)
}
