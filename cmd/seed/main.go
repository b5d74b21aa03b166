// Command seed loads a sensor CSV export into the reading store, or publishes
// it to the source topic so the ingest pipeline picks it up.
//
// Usage:
//
//	go run ./cmd/seed -csv data/sensor_data.csv
//	go run ./cmd/seed -csv data/sensor_data.csv -brokers localhost:9092 -topic sensor-readings
//
// STORE_DRIVER and STORE_DSN select the store, as for the service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "path to the sensor CSV export")
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers; publish instead of writing the store")
	topic := flag.String("topic", "sensor-readings", "Kafka topic used with -brokers")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		return fmt.Errorf("-csv is required")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	readings, skipped, err := readCSV(f)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		log.Printf("skipping %s", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *brokers != "" {
		if err := publish(ctx, strings.Split(*brokers, ","), *topic, readings); err != nil {
			return err
		}
		log.Printf("published %d readings to %s (%d rows skipped)", len(readings), *topic, len(skipped))
		return nil
	}

	driver := sharedcfg.EnvOrDefault("STORE_DRIVER", "sqlite3")
	dsn := sharedcfg.EnvOrDefault("STORE_DSN", "file:flood_risk.db?_busy_timeout=5000")
	store, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveReadings(ctx, readings); err != nil {
		return fmt.Errorf("save readings: %w", err)
	}
	log.Printf("stored %d readings (%d rows skipped)", len(readings), len(skipped))
	return nil
}

func publish(ctx context.Context, brokers []string, topic string, readings []domain.SensorReading) error {
	w := &kafkago.Writer{
		Addr:     kafkago.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafkago.Hash{},
	}
	defer w.Close()

	msgs := make([]kafkago.Message, 0, len(readings))
	for _, r := range readings {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("serialize reading: %w", err)
		}
		msgs = append(msgs, kafkago.Message{Key: []byte(r.UnitID), Value: data})
	}
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish readings: %w", err)
	}
	return nil
}
