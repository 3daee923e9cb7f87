package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateGameID() string {
	return fmt.Sprintf("game_%s_%s",
		time.Now().Format("20060102"),
		uuid.New().String()[:8])
}

func GenerateDepositID() string {
	return fmt.Sprintf("dep_%s_%s",
		time.Now().Format("20060102"),
		uuid.New().String()[:8])
}

func GeneratePlayerID() string {
	return uuid.New().String()
}

func FormatCurrency(cents float64) string {
	return fmt.Sprintf("$%.2f", cents/100)
}
