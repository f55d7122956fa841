package dataset

// 阶段之间约定的文件名。特征表/标签表不带表头，
// schema.json 与 scaler.json 跟随训练表和测试表一起写出。
const (
	TrainDirName = "train"
	TestDirName  = "test"

	TrainFeaturesFile = "train_features.csv"
	TrainLabelsFile   = "train_labels.csv"
	TestFeaturesFile  = "test_features.csv"
	TestLabelsFile    = "test_labels.csv"

	SchemaFile = "schema.json"
	ScalerFile = "scaler.json"
)
