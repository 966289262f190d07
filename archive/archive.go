// Package archive provides optional columnar export of a finished session's
// StoreModel to TileDB, for downstream bulk analysis. It is not on the
// read/write hot path (§5); a caller invokes Export after a session (or a
// checkpoint within one) completes. Grounded in the teacher's file.go groups
// and svp.go/schema.go ToTileDB/schemaAttrs pattern, generalized from GSF's
// PingData to swathio.Ping and the sensor channels.
package archive

import (
	"errors"
	"reflect"
	"strings"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	"github.com/samber/lo"
	stgpsr "github.com/yuin/stagparser"

	"github.com/dwcaress/swathio"
)

var ErrCreateGroup = errors.New("archive: error creating tiledb group")
var ErrCreateSchema = errors.New("archive: error creating tiledb array schema")
var ErrCreateAttribute = errors.New("archive: error creating tiledb attribute")

// pingRow is the flattened, per-ping row written to the Pings.tiledb array.
// Struct tags follow the teacher's schema.go convention: "tiledb" carries
// the TileDB field type, "filters" the compression filter chain.
type pingRow struct {
	PingNumber uint32  `tiledb:"name:ping_number,ftype:dim,dtype:uint32" filters:"zstd:5"`
	Time       int64   `tiledb:"name:time,ftype:attr,dtype:int64" filters:"zstd:5"`
	Serial     uint16  `tiledb:"name:serial,ftype:attr,dtype:uint16" filters:"zstd:5"`
	BeamCount  uint16  `tiledb:"name:beam_count,ftype:attr,dtype:uint16" filters:"zstd:5"`
	Longitude  float64 `tiledb:"name:longitude,ftype:attr,dtype:float64" filters:"zstd:5"`
	Latitude   float64 `tiledb:"name:latitude,ftype:attr,dtype:float64" filters:"zstd:5"`
	Heading    float64 `tiledb:"name:heading,ftype:attr,dtype:float64" filters:"zstd:5"`
}

// svpRow mirrors the teacher's svp_header layout for the SVP export array.
type svpRow struct {
	ObservationSeconds int64   `tiledb:"name:observation_seconds,ftype:dim,dtype:int64" filters:"zstd:5"`
	Longitude          float64 `tiledb:"name:longitude,ftype:attr,dtype:float64" filters:"zstd:5"`
	Latitude           float64 `tiledb:"name:latitude,ftype:attr,dtype:float64" filters:"zstd:5"`
	NumPoints          int32   `tiledb:"name:n_points,ftype:attr,dtype:int32" filters:"zstd:5"`
}

// Export writes the pings and sound-velocity profiles accumulated in store
// to a TileDB group at uri, one array per stream (§6.7).
func Export(ctx *tiledb.Context, uri string, store *swathio.StoreModel) error {
	grp, err := tiledb.NewGroup(ctx, uri)
	if err != nil {
		return errors.Join(ErrCreateGroup, err)
	}
	defer grp.Free()

	if err := grp.Create(); err != nil {
		return errors.Join(ErrCreateGroup, err)
	}
	if err := grp.Open(tiledb.TILEDB_WRITE); err != nil {
		return errors.Join(ErrCreateGroup, err)
	}
	defer grp.Close()

	pingsURI := uri + "/Pings.tiledb"
	if err := writePings(ctx, pingsURI, store.Pings); err != nil {
		return err
	}
	if err := grp.AddMember(pingsURI, "Pings", true); err != nil {
		return errors.Join(ErrCreateGroup, err)
	}

	svpURI := uri + "/SVP.tiledb"
	if err := writeSVP(ctx, svpURI, store.SVP); err != nil {
		return err
	}
	return grp.AddMember(svpURI, "SVP", true)
}

func writePings(ctx *tiledb.Context, uri string, pings []*swathio.Ping) error {
	schema, err := newSchema(ctx, pingRow{})
	if err != nil {
		return err
	}
	if err := tiledb.CreateArray(ctx, uri, schema); err != nil {
		return errors.Join(ErrCreateSchema, err)
	}

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return err
	}
	defer array.Free()
	if err := array.Open(tiledb.TILEDB_WRITE); err != nil {
		return err
	}
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return err
	}
	defer query.Free()

	rows := lo.Map(pings, func(p *swathio.Ping, _ int) pingRow {
		return pingRow{
			PingNumber: p.PingNumber,
			Time:       p.Time.UnixNano(),
			Serial:     p.Serial,
			BeamCount:  p.BeamCount,
			Longitude:  p.Longitude,
			Latitude:   p.Latitude,
			Heading:    p.Heading,
		}
	})
	return setColumnBuffers(query, rows)
}

func writeSVP(ctx *tiledb.Context, uri string, svps []swathio.SoundVelocityProfile) error {
	schema, err := newSchema(ctx, svpRow{})
	if err != nil {
		return err
	}
	if err := tiledb.CreateArray(ctx, uri, schema); err != nil {
		return errors.Join(ErrCreateSchema, err)
	}

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return err
	}
	defer array.Free()
	if err := array.Open(tiledb.TILEDB_WRITE); err != nil {
		return err
	}
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return err
	}
	defer query.Free()

	rows := lo.Map(svps, func(s swathio.SoundVelocityProfile, _ int) svpRow {
		return svpRow{
			ObservationSeconds: s.ObservationSeconds,
			Longitude:          s.Longitude,
			Latitude:           s.Latitude,
			NumPoints:          int32(len(s.Depth)),
		}
	})
	return setColumnBuffers(query, rows)
}

// newSchema builds a sparse array schema from t's tiledb struct tags,
// exactly as the teacher's schemaAttrs walks a struct via reflection and
// stagparser, generalized from one GSF record type to any tagged row type.
func newSchema(ctx *tiledb.Context, t any) (*tiledb.ArraySchema, error) {
	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_SPARSE)
	if err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}

	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}

	tdbDefs, err := stgpsr.ParseStruct(t, "tiledb")
	if err != nil {
		return nil, errors.Join(ErrCreateAttribute, err)
	}
	filtDefs, _ := stgpsr.ParseStruct(t, "filters")

	values := reflect.ValueOf(t)
	types := values.Type()

	for i := 0; i < types.NumField(); i++ {
		fieldName := types.Field(i).Name
		defs := make(map[string]stgpsr.Definition)
		for _, d := range tdbDefs[fieldName] {
			defs[d.Name()] = d
		}
		ftypeDef, ok := defs["ftype"]
		if !ok {
			return nil, errors.Join(ErrCreateAttribute, errors.New("ftype tag not found for "+fieldName))
		}
		ftype, _ := ftypeDef.Attribute("ftype")

		nameDef := defs["name"]
		name, _ := nameDef.Attribute("name")
		if name == "" {
			name = strings.ToLower(fieldName)
		}

		if ftype == "dim" {
			dim, err := tiledb.NewDimension(ctx, name, tiledb.TILEDB_INT64, []int64{0, 1 << 31}, int64(1000))
			if err != nil {
				return nil, errors.Join(ErrCreateAttribute, err)
			}
			if err := domain.AddDimensions(dim); err != nil {
				return nil, errors.Join(ErrCreateAttribute, err)
			}
			continue
		}

		attr, err := tiledb.NewAttribute(ctx, name, tiledbDatatype(defs["dtype"]))
		if err != nil {
			return nil, errors.Join(ErrCreateAttribute, err)
		}
		if fl, ok := filtDefs[fieldName]; ok && len(fl) > 0 {
			filterList, err := tiledb.NewFilterList(ctx)
			if err == nil {
				zstd, ferr := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
				if ferr == nil {
					_ = filterList.AddFilter(zstd)
					_ = attr.SetFilterList(filterList)
				}
			}
		}
		if err := schema.AddAttributes(attr); err != nil {
			return nil, errors.Join(ErrCreateAttribute, err)
		}
	}

	if err := schema.SetDomain(domain); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}
	return schema, nil
}

func tiledbDatatype(def stgpsr.Definition) tiledb.Datatype {
	if def == nil {
		return tiledb.TILEDB_FLOAT64
	}
	dtype, _ := def.Attribute("dtype")
	switch dtype {
	case "uint32":
		return tiledb.TILEDB_UINT32
	case "uint16":
		return tiledb.TILEDB_UINT16
	case "int32":
		return tiledb.TILEDB_INT32
	case "int64":
		return tiledb.TILEDB_INT64
	default:
		return tiledb.TILEDB_FLOAT64
	}
}

// setColumnBuffers sets one query buffer per exported field, transposing
// the row slice into per-column slices via reflection — generalizing the
// teacher's setStructFieldBuffers (tiledb.go) from GSF's fixed PingData
// layout to any row type used here.
func setColumnBuffers[T any](query *tiledb.Query, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	rtype := reflect.TypeOf(rows[0])
	for i := 0; i < rtype.NumField(); i++ {
		fieldName := rtype.Field(i).Name
		column := reflect.MakeSlice(reflect.SliceOf(rtype.Field(i).Type), len(rows), len(rows))
		for r := range rows {
			column.Index(r).Set(reflect.ValueOf(rows[r]).Field(i))
		}
		name := strings.ToLower(fieldName)
		if _, err := query.SetDataBuffer(name, column.Interface()); err != nil {
			return err
		}
	}
	return query.Submit()
}
