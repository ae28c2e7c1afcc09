package converter

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"heatgrid/pkg/apperror"
)

// ToGeoJSON выгружает план как FeatureCollection: сегменты трубопровода
// становятся LineString, точки подключения - Point. Это сериализация
// результата, а не отрисовка карты: стили и проекции остаются за клиентом.
// circuit ограничивает выгрузку одним контуром; пустое значение выгружает оба.
func ToGeoJSON(res *PlanResultDTO, circuit string) (*geojson.FeatureCollection, error) {
	switch circuit {
	case "", "supply", "return":
	default:
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument,
			"circuit must be supply or return", "circuit")
	}

	fc := geojson.NewFeatureCollection()

	for _, seg := range res.Pipes {
		if circuit != "" && seg.Circuit != circuit {
			continue
		}
		f := geojson.NewFeature(orb.LineString{seg.From, seg.To})
		f.Properties = geojson.Properties{
			"feature":       "pipe",
			"circuit":       seg.Circuit,
			"kind":          seg.Kind,
			"from_id":       seg.FromID,
			"to_id":         seg.ToID,
			"length":        seg.Length,
			"temperature_c": seg.TemperatureC,
			"served_assets": seg.ServedAssets,
		}
		if seg.SegmentID != "" {
			f.Properties["segment_id"] = seg.SegmentID
		}
		if seg.DemandKW > 0 {
			f.Properties["demand_kw"] = seg.DemandKW
		}
		fc.Append(f)
	}

	for _, conn := range res.Connections {
		f := geojson.NewFeature(conn.Point)
		f.Properties = geojson.Properties{
			"feature":  "service_connection",
			"asset_id": conn.AssetID,
			"node_id":  conn.NodeID,
			"distance": conn.Distance,
		}
		if conn.SegmentID != "" {
			f.Properties["segment_id"] = conn.SegmentID
		}
		if conn.DemandKW > 0 {
			f.Properties["demand_kw"] = conn.DemandKW
		}
		fc.Append(f)
	}

	if res.Source != nil {
		f := geojson.NewFeature(res.Source.Point)
		f.Properties = geojson.Properties{
			"feature":  "source",
			"asset_id": res.Source.AssetID,
			"node_id":  res.Source.NodeID,
		}
		fc.Append(f)
	}

	return fc, nil
}
