package report

import (
	"fmt"
	"time"

	"github.com/kaganay/AygazSmartEnergy/internal/domain"

	"github.com/xuri/excelize/v2"
)

const consumptionSheet = "Consumption"

var consumptionHeaders = []string{
	"Recorded At",
	"Device ID",
	"Power (W)",
	"Energy (kWh)",
	"Voltage (V)",
	"Current (A)",
	"Power Factor",
	"Temperature (C)",
	"Cost Per Hour",
	"Carbon Footprint (kg)",
}

// BuildConsumptionWorkbook 把能耗历史导出成 xlsx 工作簿
// 成本与碳排放是派生列，导出时现算
func BuildConsumptionWorkbook(records []domain.EnergyConsumption) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(consumptionSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for col, header := range consumptionHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(consumptionSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, record := range records {
		deviceID := ""
		if record.DeviceID != nil {
			deviceID = *record.DeviceID
		}
		values := []interface{}{
			record.RecordedAt.Format(time.RFC3339),
			deviceID,
			record.PowerConsumptionW,
			record.EnergyUsedKWh,
			record.Voltage,
			record.Current,
			record.PowerFactor,
			record.Temperature,
			record.CostPerHour(),
			record.CarbonFootprint(),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("failed to build cell: %w", err)
			}
			if err := f.SetCellValue(consumptionSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	return f, nil
}
